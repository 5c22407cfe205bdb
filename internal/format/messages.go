package format

import (
	"fmt"
	"strings"
	"time"

	"github.com/hray3182/coachline/internal/models"
	"github.com/hray3182/coachline/internal/rrule"
	"github.com/hray3182/coachline/internal/state"
)

const (
	clockLayout = "03:04:05 PM MST"
	shortLayout = "03:04 PM"
	dayLayout   = "Mon 02 Jan, 03:04 PM"
)

var foodOptions = map[string][]string{
	"morning_routine": {
		"💧 Warm water/lemon water/ajwain-jeera water",
		"🏋️ Pre-workout: Banana/almonds (if needed)",
	},
	"post_workout": {"💪 Fruit/almonds/coconut/roasted chana"},
	"breakfast": {
		"🥘 Moong dal chilla/Besan chilla/Poha/Upma/Idli",
		"💪 Paneer bhurji (small)/Greek yogurt",
		"⚡ Toast + peanut butter/Banana + almonds",
	},
	"midday_hydration": {"💧 Water/Coconut water/Lemonade (no sugar)"},
	"lunch": {
		"📋 BASE: 2 rotis / 1 roti + ½ rice / 1 bowl rice",
		"🥘 SABZI: Lauki/Tinda/Bhindi/Beans/Mix veg",
		"⚠️ ONLY 1 SMALL BOWL SABZI!",
		"💪 PROTEIN: Dal/Rajma/Chole/Curd (MANDATORY)",
		"🥗 SALAD: Cucumber/carrot/sprouts (FIRST!)",
	},
	"snack": {
		"🥜 Roasted chana/Makhana/Peanut chaat",
		"🍎 Apple/Pomegranate/Banana",
		"💪 Paneer cubes/Sprouts",
		"⚠️ IF CRAVING NAMKEEN: Mix roasted chana + murmura + peanuts",
	},
	"dinner": {
		"🌙 LIGHT: Moong dal khichdi/Daliya/1 roti + dal",
		"💪 Paneer bhurji/Tofu/Moong dal + veg",
		"✨ VERY LIGHT: Soup/Khichdi + curd",
	},
	"night_craving": {
		"🍵 Warm drinks: Ajwain-jeera-haldi/Lemon/Cinnamon water",
		"🥜 Makhana/Roasted chana/6-8 almonds/Khakhra",
		"🍯 Sweet: Small jaggery/Warm milk + cinnamon",
		"🚫 AVOID: Namkeen/Biscuits/Apple/Fried snacks",
	},
}

// FoodOptions returns the suggestions shown with a daily prompt.
func FoodOptions(event string) []string {
	if options, ok := foodOptions[event]; ok {
		return options
	}
	return []string{"Options not found"}
}

// EventLabel turns an event name like "night_craving" into "Night Craving".
func EventLabel(name string) string {
	words := strings.Split(name, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// MealPrompt renders a daily coaching prompt.
func MealPrompt(event models.RecurringEvent, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "**%s**\n⏰ %s\n\n", event.Title, now.Format(clockLayout))
	for _, item := range FoodOptions(event.Name) {
		b.WriteString(item + "\n")
	}

	switch event.Name {
	case "lunch", "dinner":
		b.WriteString("\n💡 Walk 5-10 mins after eating!")
	case "snack":
		b.WriteString("\n🎯 Stay strong - YOUR weak time!")
	case "night_craving":
		b.WriteString("\n✅ Choose wisely = Wake lighter tomorrow!")
	}
	return b.String()
}

// TaskReminder renders the advance notice for a task.
func TaskReminder(task *models.Task, now time.Time) string {
	text := "⏰ **Task Reminder**\n\n"
	text += "📌 " + task.Description + "\n"
	text += "🕐 " + task.TargetAt.Format(dayLayout)
	if until := task.TargetAt.Sub(now); until > 0 {
		text += " (in " + Duration(until) + ")"
	}
	return text
}

// TaskFollowup renders the completion check sent after the target time.
func TaskFollowup(task *models.Task) string {
	text := "✅ **Quick Check-in**\n\n"
	text += "Did you finish: " + task.Description + "?\n"
	text += "🕐 It was due at " + task.TargetAt.Format(shortLayout)
	return text
}

// TaskCreated confirms a newly scheduled task.
func TaskCreated(task *models.Task, now time.Time) string {
	text := "📝 **Task Scheduled!**\n\n"
	text += "📌 " + task.Description + "\n"
	text += "🕐 " + task.TargetAt.Format(dayLayout) + "\n\n"
	if task.ReminderSent {
		text += "🔔 It's less than an hour away, so I've reminded you already.\n"
	} else {
		text += "🔔 Reminder at " + task.ReminderAt.Format(shortLayout) + "\n"
	}
	text += "✅ Check-in at " + task.FollowupAt.Format(shortLayout)
	return text
}

const (
	ParseFailureReply = "🤔 I couldn't understand the time.\n\nTry something like: remind me to call doctor at 5 PM tomorrow"
	PastTimeReply     = "⏪ That time has already passed.\n\nPlease give me a time in the future, e.g. \"in 2 hours\" or \"tomorrow at 9 AM\"."
	StoreFailureReply = "⚠️ Sorry, I couldn't save that task. Please try again."
	WorkoutDoneReply  = "💪 Workout logged for today. Great job!"
	StartFirstReply   = "⚠️ Send /start first!"
	UnknownCommand    = "❌ Unknown command! Try /start /debug /status /time /test /tasks /help"
)

// Start renders the activation card.
func Start(chatID int64, now time.Time, events []models.RecurringEvent) string {
	var b strings.Builder
	b.WriteString("🙏 **Namaste! Your Nutrition Coach!**\n\n")
	fmt.Fprintf(&b, "🇮🇳 Activated: %s\n", now.Format(clockLayout))
	fmt.Fprintf(&b, "👤 Chat ID: %d\n\n", chatID)
	b.WriteString("✅ **Profile:** 84→74kg, Plateau 1.5yr\n\n")
	fmt.Fprintf(&b, "🔔 **%s Schedule:**\n", now.Format("MST"))
	for _, e := range events {
		fmt.Fprintf(&b, "• %s - %s\n", e.TimeOfDay, EventLabel(e.Name))
	}
	b.WriteString("\n💬 **Commands:**\n/time /status /debug /test /trigger /tasks /history /help\n\n")
	b.WriteString("⏰ Say \"remind me to ... at ...\" to schedule a task.\n\n")
	b.WriteString("Let's break that plateau! 💪")
	return b.String()
}

// Help lists the commands.
func Help() string {
	return "📖 **Commands**\n\n" +
		"/start - activate reminders for this chat\n" +
		"/time - current time and upcoming prompts\n" +
		"/status - scheduler status\n" +
		"/debug - detailed diagnostics\n" +
		"/test - send a test prompt\n" +
		"/trigger <event> - send a daily prompt now\n" +
		"/tasks - pending tasks\n" +
		"/history - recent tasks\n\n" +
		"⏰ Tasks: \"remind me to call doctor at 5 PM tomorrow\"\n" +
		"💪 Workout: \"workout done\""
}

// TriggerUsage lists the events /trigger accepts.
func TriggerUsage(events []models.RecurringEvent) string {
	text := "Usage: /trigger [event]\n\nAvailable:\n"
	for _, e := range events {
		text += "• `" + e.Name + "`\n"
	}
	return text
}

// Status is the data behind /status and /debug.
type Status struct {
	state.Snapshot
	Pending int
}

func never(t time.Time) string {
	if t.IsZero() {
		return "Never"
	}
	return t.Format(clockLayout)
}

func orNone(s string) string {
	if s == "" {
		return "None"
	}
	return s
}

func recipientLabel(s state.Snapshot) string {
	if !s.HasRecipient {
		return "None"
	}
	return fmt.Sprintf("%d", s.Recipient)
}

func running(s state.Snapshot) string {
	if s.Running {
		return "✅ Running"
	}
	return "❌ Stopped"
}

// StatusCard renders /status.
func StatusCard(st Status, now time.Time) string {
	var b strings.Builder
	b.WriteString("📊 **System Status**\n\n")
	fmt.Fprintf(&b, "⏰ Now: %s\n", now.Format(clockLayout))
	fmt.Fprintf(&b, "👤 Chat: %s\n", recipientLabel(st.Snapshot))
	fmt.Fprintf(&b, "🔄 Scheduler: %s\n", running(st.Snapshot))
	fmt.Fprintf(&b, "📡 Last Check: %s\n", never(st.LastCheck))
	fmt.Fprintf(&b, "📨 Last Sent: %s\n", orNone(st.LastSent))
	fmt.Fprintf(&b, "📝 Pending Tasks: %d\n", st.Pending)
	fmt.Fprintf(&b, "❌ Errors: %d\n", st.ErrorCount)
	return b.String()
}

// DebugCard renders /debug for the chat that asked.
func DebugCard(st Status, chatID int64, now time.Time, events []models.RecurringEvent) string {
	current := now.Format("15:04")
	match := "NO"
	if st.HasRecipient && st.Recipient == chatID {
		match = "YES"
	}

	var b strings.Builder
	b.WriteString("🔍 **Debug Information**\n\n")
	fmt.Fprintf(&b, "⏰ Now: %s\n", now.Format(clockLayout))
	fmt.Fprintf(&b, "🕐 Time String: %s\n", current)
	fmt.Fprintf(&b, "👤 Your Chat ID: %d\n", chatID)
	fmt.Fprintf(&b, "💾 Stored Chat ID: %s\n", recipientLabel(st.Snapshot))
	fmt.Fprintf(&b, "✅ Match: %s\n\n", match)
	b.WriteString("🔄 **Scheduler Status:**\n")
	fmt.Fprintf(&b, "Running: %t\n", st.Running)
	fmt.Fprintf(&b, "Last Check: %s\n", never(st.LastCheck))
	fmt.Fprintf(&b, "Last Sent: %s\n", orNone(st.LastSent))
	fmt.Fprintf(&b, "Errors: %d\n", st.ErrorCount)
	fmt.Fprintf(&b, "Workout Done: %t\n", st.WorkoutDone)
	fmt.Fprintf(&b, "Pending Tasks: %d\n\n", st.Pending)
	b.WriteString("📅 **Schedule Check:**\n")

	fired := make(map[string]bool, len(st.FiredToday))
	for _, name := range st.FiredToday {
		fired[name] = true
	}
	for _, e := range events {
		mark := "⏳"
		switch {
		case e.TimeOfDay == current:
			mark = "✅ NOW!"
		case fired[e.Name]:
			mark = "☑️"
		}
		fmt.Fprintf(&b, "%s %s - %s\n", mark, e.TimeOfDay, e.Name)
	}
	return b.String()
}

// TimeCard renders /time with the prompts still to come today.
func TimeCard(now time.Time, upcoming []rrule.Occurrence) string {
	var b strings.Builder
	b.WriteString("🇮🇳 **Current Time**\n\n")
	fmt.Fprintf(&b, "⏰ %s\n", now.Format(clockLayout))
	fmt.Fprintf(&b, "📅 %s\n\n", now.Format("02 January 2006, Monday"))
	b.WriteString("**Upcoming Today:**\n")
	if len(upcoming) == 0 {
		b.WriteString("• Nothing else today 🌙\n")
	}
	for _, occ := range upcoming {
		fmt.Fprintf(&b, "• %s - %s\n", occ.At.Format(shortLayout), EventLabel(occ.Event.Name))
	}
	return b.String()
}

// TaskList renders /tasks.
func TaskList(tasks []*models.Task) string {
	if len(tasks) == 0 {
		return "📭 No pending tasks.\n\nSay \"remind me to ... at ...\" to add one."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "📝 **Pending Tasks** (%d)\n\n", len(tasks))
	for i, t := range tasks {
		fmt.Fprintf(&b, "%d. %s - %s %s\n", i+1, t.Description, t.TargetAt.Format(dayLayout), taskBadge(t))
	}
	return b.String()
}

// History renders /history.
func History(tasks []*models.Task) string {
	if len(tasks) == 0 {
		return "📭 No tasks yet."
	}
	var b strings.Builder
	b.WriteString("📜 **Recent Tasks**\n\n")
	for _, t := range tasks {
		fmt.Fprintf(&b, "• %s - %s %s\n", t.TargetAt.Format(dayLayout), t.Description, taskBadge(t))
	}
	return b.String()
}

func taskBadge(t *models.Task) string {
	switch {
	case t.Completed:
		return "✅"
	case t.FollowupSent:
		return "☑️"
	case t.ReminderSent:
		return "🔔"
	default:
		return "⏳"
	}
}

// Duration formats d for humans, e.g. "1 hour 5 minutes".
func Duration(d time.Duration) string {
	if d < time.Minute {
		return "less than a minute"
	}
	minutes := int(d.Minutes())
	if d < time.Hour {
		return plural(minutes, "minute")
	}
	hours := int(d.Hours())
	mins := minutes % 60
	if mins == 0 {
		return plural(hours, "hour")
	}
	return plural(hours, "hour") + " " + plural(mins, "minute")
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
