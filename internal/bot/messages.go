package bot

const (
	MsgWelcome = "Hi! I track study sessions. Use /study_start when you begin and /study_stop when you are done. /help lists everything I can do."

	MsgHelp = `Study bot commands:
/study_start - start a study session
/study_stop - stop the session and save it
/stats [today|week|month|year] - your totals (all four without an argument)
/rank [today|week|month|year|all] - group top list, default today
/overall - group all-time summary and top list
/sessions [today|week|month|year] - your recent sessions, default today
/help - this message`

	MsgAlreadyStudying   = "You are already studying! Use /study_stop to finish first."
	MsgNothingInProgress = "No session in progress. Start one with /study_start."
	MsgStoreFailure      = "Something went wrong on my side, please try again."
	MsgGroupOnly         = "This command works in group chats. Add me to your study group!"
	MsgNoRecords         = "No study records here yet."
)
