package ledger

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"smart-picks/internal/odds"
)

// Ledger errors. Duplicate ids, opposite-side holds and replay mismatches
// are invariant violations; callers treat them as fatal for the run.
var (
	ErrDuplicatePick  = errors.New("duplicate pick id")
	ErrOppositeSide   = errors.New("opposite side already held")
	ErrReplayMismatch = errors.New("bankroll replay mismatch")
	ErrPickNotFound   = errors.New("pick not found")
	ErrAlreadyClosed  = errors.New("pick already closed")
)

// Status is the lifecycle state of a pick.
type Status string

const (
	StatusPending Status = "PENDING" // selected, event not started
	StatusOpen    Status = "OPEN"    // event started, not graded
	StatusClosed  Status = "CLOSED"
)

// Unresolved reports whether the pick still awaits grading.
func (s Status) Unresolved() bool {
	return s == StatusPending || s == StatusOpen
}

// ParseStatus accepts current and legacy spellings. Legacy rows stored the
// result as the status ("win", "loss", "push").
func ParseStatus(s string) (Status, Result) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "OPEN":
		return StatusOpen, ResultNone
	case "CLOSED":
		return StatusClosed, ResultNone
	case "WIN", "WON":
		return StatusClosed, ResultWin
	case "LOSS", "LOST":
		return StatusClosed, ResultLoss
	case "PUSH":
		return StatusClosed, ResultPush
	}
	return StatusPending, ResultNone
}

// Result is the graded outcome of a closed pick.
type Result string

const (
	ResultNone Result = ""
	ResultWin  Result = "WIN"
	ResultLoss Result = "LOSS"
	ResultPush Result = "PUSH"
)

// ParseResult parses a result, case-insensitively.
func ParseResult(s string) (Result, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "":
		return ResultNone, true
	case "WIN", "WON":
		return ResultWin, true
	case "LOSS", "LOST", "LOSE":
		return ResultLoss, true
	case "PUSH":
		return ResultPush, true
	}
	return ResultNone, false
}

// Pick is one ledger entry. Created by the selector, mutated only by grading.
type Pick struct {
	ID         string
	EventID    string
	Sport      string
	Home       string
	Away       string
	StartTime  time.Time
	Market     odds.MarketType
	Descriptor Descriptor
	// Selection is the persisted descriptor text; kept verbatim so a row
	// that fails to parse is never rewritten.
	Selection string
	Price     int
	Stake     decimal.Decimal

	ImpliedProb float64
	ModelProb   float64
	Edge        float64
	RankScore   float64

	PlacedAt      time.Time
	Status        Status
	Result        Result
	Profit        decimal.Decimal
	ResolvedAt    time.Time
	BankrollAfter decimal.Decimal
	FinalScore    string // "Away 20 @ Home 21"
}

// Matchup renders "Away @ Home".
func (p Pick) Matchup() string {
	return p.Away + " @ " + p.Home
}

// pickNamespace scopes generated pick ids.
var pickNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("smart-picks/pick"))

// PickID derives a stable id from what the pick is, so selecting the same
// position twice yields the same id.
func PickID(sport, eventID string, d Descriptor) string {
	name := strings.Join([]string{sport, eventID, string(d.Market), d.Key()}, "|")
	return uuid.NewSHA1(pickNamespace, []byte(name)).String()
}

// ProfitFor computes the settled profit of a stake at an American price.
// WIN pays stake × (decimal − 1), LOSS costs the stake, PUSH is flat.
// Amounts are rounded to cents.
func ProfitFor(result Result, stake decimal.Decimal, price int) decimal.Decimal {
	switch result {
	case ResultWin:
		if price > 0 {
			return stake.Mul(decimal.NewFromInt(int64(price))).Div(decimal.NewFromInt(100)).Round(2)
		}
		if price < 0 {
			return stake.Mul(decimal.NewFromInt(100)).Div(decimal.NewFromInt(int64(-price))).Round(2)
		}
		return decimal.Zero
	case ResultLoss:
		return stake.Neg().Round(2)
	}
	return decimal.Zero
}
