package scenario

import (
	"context"
	"fmt"

	"github.com/CarbonSustain/OffsetZap-sub000/internal/ledger/stub"
	"github.com/CarbonSustain/OffsetZap-sub000/internal/pool"
)

// Divergence is an invariant violation detected after a step.
type Divergence struct {
	Step     int    `json:"step"`
	Field    string `json:"field"`
	Expected uint64 `json:"expected"`
	Actual   uint64 `json:"actual"`
}

func (d Divergence) String() string {
	return fmt.Sprintf("step %d: %s = %d, want %d", d.Step, d.Field, d.Actual, d.Expected)
}

// StepResult records the outcome of one executed step.
type StepResult struct {
	Step     int    `json:"step"`
	Op       Op     `json:"op"`
	Err      error  `json:"-"`
	ErrMsg   string `json:"error,omitempty"`
	Units    uint64 `json:"units"`   // units minted or burned
	Reserve  uint64 `json:"reserve"` // reserve deposited, released or extracted
	Rejected bool   `json:"rejected,omitempty"`
}

// Results is the full outcome of a scenario run.
type Results struct {
	Scenario    string       `json:"scenario"`
	Steps       []StepResult `json:"steps"`
	Divergences []Divergence `json:"divergences,omitempty"`

	FinalReserve uint64 `json:"final_reserve"`
	FinalUnits   uint64 `json:"final_units"`
}

// OK reports whether every step behaved as scripted and all invariants held.
func (r *Results) OK() bool {
	if len(r.Divergences) > 0 {
		return false
	}
	for _, s := range r.Steps {
		if s.Err != nil && !s.Rejected {
			return false
		}
	}
	return true
}

// Runner executes scenarios against fresh single-pool engines backed by an
// in-process ledger, checking value and unit conservation after every step.
type Runner struct {
	cfg pool.Config
}

// NewRunner creates a scenario runner. The scenario's mint policy, when set,
// overrides the config's.
func NewRunner(cfg pool.Config) *Runner {
	return &Runner{cfg: cfg}
}

// Run executes a scenario and returns its results. Execution continues past
// rejected steps; the caller inspects Results.OK.
func (r *Runner) Run(ctx context.Context, sc *Scenario) (*Results, error) {
	if err := sc.Validate(); err != nil {
		return nil, err
	}

	cfg := r.cfg
	if sc.MintPolicy != "" {
		cfg.MintPolicy = sc.MintPolicy
	}

	tl := stub.NewLedger()
	engine := pool.NewEngine("scenario-pool", "scenario-cslp", "scenario-creator", cfg, tl)

	results := &Results{Scenario: sc.Name}
	var deposited, released, extracted uint64
	var minted, burned uint64

	for i, step := range sc.Steps {
		res := StepResult{Step: i, Op: step.Op}

		switch step.Op {
		case OpInitialize:
			units, err := engine.Initialize(ctx, step.Amount, step.Account)
			res.Err = err
			if err == nil {
				res.Units, res.Reserve = units, step.Amount
				deposited += step.Amount
				minted += units
			}
		case OpDeposit:
			record, err := engine.Deposit(ctx, pool.DepositParams{
				ReserveAmount:       step.Amount,
				Depositor:           step.Account,
				USDReference:        step.USDReference,
				MaturationReference: step.MaturationReference,
				MinUnitsExpected:    step.Min,
			})
			res.Err = err
			if err == nil {
				res.Units, res.Reserve = record.UnitsMinted, step.Amount
				deposited += step.Amount
				minted += record.UnitsMinted
			}
		case OpWithdraw:
			reserve, err := engine.Withdraw(ctx, step.Amount, step.Min, step.Account)
			res.Err = err
			if err == nil {
				res.Units, res.Reserve = step.Amount, reserve
				released += reserve
				burned += step.Amount
			}
		case OpPause:
			engine.SetPaused(true)
		case OpUnpause:
			engine.SetPaused(false)
		case OpExtract:
			err := engine.ExtractReserve(ctx, step.Amount, step.Account)
			res.Err = err
			if err == nil {
				res.Reserve = step.Amount
				extracted += step.Amount
			}
		}

		res.Rejected = step.ExpectError
		if res.Err != nil {
			res.ErrMsg = res.Err.Error()
		}
		results.Steps = append(results.Steps, res)

		if step.ExpectError && res.Err == nil {
			results.Divergences = append(results.Divergences, Divergence{
				Step: i, Field: "expected rejection", Expected: 1, Actual: 0,
			})
		}

		results.Divergences = append(results.Divergences, r.checkInvariants(i, engine, tl,
			deposited-released-extracted, minted-burned)...)
	}

	info := engine.PoolInfo()
	results.FinalReserve = info.ReserveBalance
	results.FinalUnits = info.TotalUnits
	return results, nil
}

// checkInvariants compares engine state against the running conservation
// totals and the ledger's view of receipt unit supply.
func (r *Runner) checkInvariants(step int, engine *pool.Engine, tl *stub.Ledger, wantReserve, wantUnits uint64) []Divergence {
	var out []Divergence
	info := engine.PoolInfo()

	if info.ReserveBalance != wantReserve {
		out = append(out, Divergence{Step: step, Field: "reserve_balance", Expected: wantReserve, Actual: info.ReserveBalance})
	}
	if info.TotalValue != info.ReserveBalance {
		out = append(out, Divergence{Step: step, Field: "total_value", Expected: info.ReserveBalance, Actual: info.TotalValue})
	}
	if info.TotalUnits != wantUnits {
		out = append(out, Divergence{Step: step, Field: "total_units", Expected: wantUnits, Actual: info.TotalUnits})
	}
	if supply := tl.Supply(); supply != info.TotalUnits {
		out = append(out, Divergence{Step: step, Field: "ledger_supply", Expected: info.TotalUnits, Actual: supply})
	}
	return out
}
