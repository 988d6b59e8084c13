// Package scenario executes scripted operation sequences against a pool
// engine and verifies the accounting invariants after every step. Scripts
// are plain JSON so simulations can be checked into the repo and replayed.
package scenario

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/CarbonSustain/OffsetZap-sub000/internal/domain"
)

// Op is a scripted operation kind.
type Op string

// Op constants.
const (
	OpInitialize Op = "initialize"
	OpDeposit    Op = "deposit"
	OpWithdraw   Op = "withdraw"
	OpPause      Op = "pause"
	OpUnpause    Op = "unpause"
	OpExtract    Op = "extract"
)

// Step is one scripted operation. Amount is reserve smallest units for
// initialize/deposit/extract and receipt units for withdraw.
type Step struct {
	Op                  Op     `json:"op"`
	Account             string `json:"account"`
	Amount              uint64 `json:"amount"`
	Min                 uint64 `json:"min,omitempty"`
	USDReference        uint64 `json:"usd_reference,omitempty"`
	MaturationReference uint64 `json:"maturation_reference,omitempty"`

	// ExpectError marks a step that must be rejected. The step still runs;
	// the run fails if it succeeds instead.
	ExpectError bool `json:"expect_error,omitempty"`
}

// Scenario is a named script executed against a single fresh pool.
type Scenario struct {
	Name       string            `json:"name"`
	MintPolicy domain.MintPolicy `json:"mint_policy,omitempty"`
	Steps      []Step            `json:"steps"`
}

// Load reads a scenario script from a JSON file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var sc Scenario
	if err := json.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse scenario %s: %w", path, err)
	}
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &sc, nil
}

// Validate checks the script for structural problems before execution.
func (s *Scenario) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("missing name")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("no steps")
	}
	if s.MintPolicy != "" && !s.MintPolicy.Valid() {
		return fmt.Errorf("unknown mint policy %q", s.MintPolicy)
	}
	for i, step := range s.Steps {
		switch step.Op {
		case OpInitialize, OpDeposit, OpWithdraw, OpExtract:
			if step.Account == "" {
				return fmt.Errorf("step %d (%s): missing account", i, step.Op)
			}
		case OpPause, OpUnpause:
		default:
			return fmt.Errorf("step %d: unknown op %q", i, step.Op)
		}
	}
	return nil
}
