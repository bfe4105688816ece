package network

import (
	"fmt"
	"math"
	"strings"

	"github.com/matzehuels/gridcore/pkg/errors"
)

// ValidationLevel orders how complete the data of a network is.
type ValidationLevel int

const (
	// ValidationEquipment requires the static equipment data only.
	ValidationEquipment ValidationLevel = iota
	// ValidationSteadyStateHypothesis also requires every setpoint needed
	// to run a load flow.
	ValidationSteadyStateHypothesis
)

func (l ValidationLevel) String() string {
	switch l {
	case ValidationEquipment:
		return "EQUIPMENT"
	case ValidationSteadyStateHypothesis:
		return "STEADY_STATE_HYPOTHESIS"
	default:
		return fmt.Sprintf("ValidationLevel(%d)", int(l))
	}
}

// ParseValidationLevel parses "EQUIPMENT" or "STEADY_STATE_HYPOTHESIS"
// (case-insensitive, "SSH" accepted).
func ParseValidationLevel(s string) (ValidationLevel, error) {
	switch strings.ToUpper(s) {
	case "EQUIPMENT":
		return ValidationEquipment, nil
	case "STEADY_STATE_HYPOTHESIS", "SSH":
		return ValidationSteadyStateHypothesis, nil
	}
	return 0, errors.New(errors.ErrCodeInvalidInput, "unknown validation level %q", s)
}

// validatable is implemented by elements carrying steady-state values.
type validatable interface {
	validationLevel() ValidationLevel
}

// checker accumulates the validation level reached while checking one
// element against the minimum level of its network.
type checker struct {
	owner string
	min   ValidationLevel
	level ValidationLevel
}

func newChecker(n *Network, kind, id string) *checker {
	return &checker{
		owner: fmt.Sprintf("%s %q", kind, id),
		min:   n.minLevel,
		level: ValidationSteadyStateHypothesis,
	}
}

// equipment fails when an equipment value is invalid, whatever the level.
func (c *checker) equipment(ok bool, format string, args ...any) error {
	if ok {
		return nil
	}
	return errors.Validation("%s: %s", c.owner, fmt.Sprintf(format, args...))
}

// ssh fails when a steady-state value is invalid and the network requires
// steady-state data; otherwise it lowers the reached level.
func (c *checker) ssh(ok bool, format string, args ...any) error {
	if ok {
		return nil
	}
	if c.min >= ValidationSteadyStateHypothesis {
		return errors.Validation("%s: %s", c.owner, fmt.Sprintf(format, args...))
	}
	c.level = ValidationEquipment
	return nil
}

func isSet(v float64) bool { return !math.IsNaN(v) }

func checkImpedance(c *checker, r, x float64) error {
	if err := c.equipment(isSet(r), "r is invalid"); err != nil {
		return err
	}
	return c.equipment(isSet(x), "x is invalid")
}

func checkAdmittance(c *checker, names [2]string, g, b float64) error {
	if err := c.equipment(isSet(g), "%s is invalid", names[0]); err != nil {
		return err
	}
	return c.equipment(isSet(b), "%s is invalid", names[1])
}

// ValidationLevel returns the level reached by the current data of every
// element in every variant.
func (n *Network) ValidationLevel() ValidationLevel {
	n.levelMu.Lock()
	defer n.levelMu.Unlock()
	if !n.levelKnown {
		level := ValidationSteadyStateHypothesis
		n.index.each(func(obj Identifiable) {
			if v, ok := obj.(validatable); ok {
				level = min(level, v.validationLevel())
			}
		})
		n.level, n.levelKnown = level, true
	}
	return n.level
}

// MinimumValidationLevel returns the lowest level the network accepts.
func (n *Network) MinimumValidationLevel() ValidationLevel { return n.minLevel }

// SetMinimumValidationLevel raises the minimum validation level. Lowering it
// is an IllegalState error; raising it above the level of the current data
// is a Validation error.
func (n *Network) SetMinimumValidationLevel(level ValidationLevel) error {
	if level < n.minLevel {
		return errors.IllegalState("minimum validation level cannot be lowered from %s to %s", n.minLevel, level)
	}
	if current := n.ValidationLevel(); current < level {
		return errors.Validation("network %q is at level %s, below %s", n.id, current, level)
	}
	n.minLevel = level
	return nil
}

// recordValidationLevel lowers the cached level after a mutation that
// reached level, or forgets it when the mutation may have raised it.
func (n *Network) recordValidationLevel(level ValidationLevel) {
	n.levelMu.Lock()
	defer n.levelMu.Unlock()
	if !n.levelKnown {
		return
	}
	switch {
	case level < n.level:
		n.level = level
	case level > n.level:
		n.levelKnown = false
	}
}

func (n *Network) forgetValidationLevel() {
	n.levelMu.Lock()
	n.levelKnown = false
	n.levelMu.Unlock()
}
