package model

// Action is a human-friendly operating mode for a period.
// Keep these values stable; they are intended for CSV output.
type Action string

const (
	ActionCharging    Action = "CHARGING"
	ActionIdle        Action = "IDLE"
	ActionDischarging Action = "DISCHARGING"
	// ActionBoth marks a period where the LP chose to charge and discharge
	// at once. Nothing in the model forbids it.
	ActionBoth Action = "BOTH"
)

func ActionFromFlows(chargeMW, dischargeMW float64) Action {
	switch {
	case chargeMW > 0 && dischargeMW > 0:
		return ActionBoth
	case chargeMW > 0:
		return ActionCharging
	case dischargeMW > 0:
		return ActionDischarging
	default:
		return ActionIdle
	}
}
