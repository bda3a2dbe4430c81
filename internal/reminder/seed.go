package reminder

import "growell/internal/schedule"

// DefaultSeeds are the reminders a fresh install starts with.
func DefaultSeeds(p *schedule.Parser) []Seed {
	return []Seed{
		{Input: LegacyInput(p, "Growth Measurement", "Record height and weight", "10:00 AM", "Tomorrow"), Enabled: true},
		{Input: LegacyInput(p, "Pediatrician Appointment", "Regular check-up with Dr. Kim", "2:30 PM", "Wed, Mar 6"), Enabled: true},
		{Input: LegacyInput(p, "Vitamin Supplement", "Daily vitamin D dose", "8:00 AM", "Daily"), Enabled: false},
		{Input: LegacyInput(p, "Meal Planning", "Prepare weekly nutrition plan", "7:00 PM", "Every Sunday"), Enabled: true},
	}
}
