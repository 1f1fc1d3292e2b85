package engine

// User-facing reply texts. The welcome banner is shown once per sender,
// prefixed to whatever reply their first message produces.
const (
	msgWelcomeBanner = "Welcome to the Expense Tracker Bot"

	msgMainMenu = "Please choose an option:\n\n" +
		"1. Add Expense\n" +
		"2. View Today Total\n" +
		"3. View This Week Total\n" +
		"4. View All-Time Total\n" +
		"5. Exit"

	msgGoodbye = "Thank you for using Expense Tracker."

	msgInvalidCategory = "Invalid choice. "

	msgAskAmount = "Enter the amount spent on %s:"

	msgInvalidAmount = "Invalid amount. Enter a number:"

	msgAskNotes = "Enter a note or comment (or type '-' for none):"

	msgExpenseSaved = "Expense saved.\nYou spent %s on %s."

	msgNextActionMenu = "What would you like to do next:\n" +
		"1. Add Another Expense\n" +
		"2. View Today Total\n" +
		"3. Main Menu"

	msgInvalidChoice = "Invalid choice."

	msgTodayTotal   = "Today's total spending: %s"
	msgWeekTotal    = "This week's total spending: %s"
	msgAllTimeTotal = "All-time total spending: %s"
)
