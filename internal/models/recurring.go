package models

// RecurringEvent is a named prompt sent at the same civil time every day.
type RecurringEvent struct {
	Name      string `json:"name"`
	TimeOfDay string `json:"time_of_day"` // HH:MM in the civil zone
	Title     string `json:"title"`
}

// DefaultSchedule is the fixed daily coaching clock.
func DefaultSchedule() []RecurringEvent {
	return []RecurringEvent{
		{Name: "morning_routine", TimeOfDay: "08:00", Title: "🌅 GOOD MORNING!"},
		{Name: "post_workout", TimeOfDay: "08:30", Title: "💪 Post-Workout Recovery"},
		{Name: "breakfast", TimeOfDay: "08:45", Title: "🍳 Breakfast Time!"},
		{Name: "midday_hydration", TimeOfDay: "11:00", Title: "💧 Midday Check-in!"},
		{Name: "lunch", TimeOfDay: "13:00", Title: "🍽️ Lunch Time!"},
		{Name: "snack", TimeOfDay: "16:30", Title: "☕ Evening Snack! ⚠️ NAMKEEN TIME"},
		{Name: "dinner", TimeOfDay: "18:30", Title: "🌆 Dinner Time!"},
		{Name: "night_craving", TimeOfDay: "21:00", Title: "🌙 Night Craving Alert! ⚠️"},
	}
}

// Lookup finds an event by name.
func Lookup(events []RecurringEvent, name string) (RecurringEvent, bool) {
	for _, e := range events {
		if e.Name == name {
			return e, true
		}
	}
	return RecurringEvent{}, false
}
