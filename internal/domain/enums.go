package domain

// ChangeDirection encodes a participant's self-reported belief change
// about the primary cause of climate change, captured by the intake
// survey. Six fixed directions plus a free-text "other".
type ChangeDirection string

const (
	ChangeNaturalToHuman       ChangeDirection = "natural_to_human"
	ChangeHumanToNatural       ChangeDirection = "human_to_natural"
	ChangeMoreConfidentHuman   ChangeDirection = "more_confident_human"
	ChangeMoreConfidentNatural ChangeDirection = "more_confident_natural"
	ChangeBecameUncertain      ChangeDirection = "became_uncertain"
	ChangeNoChange             ChangeDirection = "no_change"
	ChangeOther                ChangeDirection = "other"
)

// ChangeStatements maps each fixed direction to the belief-change
// sentence used as the first bullet of a synthesized summary.
var ChangeStatements = map[ChangeDirection]string{
	ChangeNaturalToHuman:       "You shifted from seeing climate change as mostly natural to seeing it as mostly human-caused.",
	ChangeHumanToNatural:       "You shifted from seeing climate change as mostly human-caused to seeing it as mostly natural.",
	ChangeMoreConfidentHuman:   "You became more confident that climate change is mostly human-caused.",
	ChangeMoreConfidentNatural: "You became more confident that climate change is mostly natural.",
	ChangeBecameUncertain:      "You became less certain about what drives climate change.",
	ChangeNoChange:             "Your view on the causes of climate change stayed the same.",
}

// ErrorCode tags an error with one of the user-facing categories.
type ErrorCode string

const (
	CodeValidation           ErrorCode = "validation_error"
	CodeConversationNotFound ErrorCode = "conversation_not_found"
	CodeParticipantNotFound  ErrorCode = "participant_not_found"
	CodeTimeout              ErrorCode = "timeout"
	CodeDataError            ErrorCode = "data_error"
	CodeServerError          ErrorCode = "server_error"
	CodeConnectionTimeout    ErrorCode = "connection_timeout"
	CodeNetworkError         ErrorCode = "network_error"
	CodeRateLimit            ErrorCode = "rate_limit"
)
