package models

const (
	DefaultSentinel  = "NOT_FOUND"
	ContextSeparator = "\n---\n"
	ThinkTag         = `(?s)<think>.*?</think>`

	// HeadingRegex matches numbered manual headings such as "2.1 Data Packages".
	HeadingRegex = `^(\d+(?:\.\d+)*)([.)]?)\s+(\p{Lu}.{0,78})$`
	// UpperHeadingRegex matches short upper-case lines such as "HOME BROADBAND".
	UpperHeadingRegex = `^\p{Lu}[\p{Lu}\d &/\-]{2,60}$`
)

const (
	EmptyQuestionMessage = "Please type a question about our packages, routers or services."
	NoAnswerMessage      = "I couldn't find that information in our guides or online."
	UnavailableMessage   = "The assistant is temporarily unavailable. Please try again in a moment."
)

var (
	DocumentPromptTemplate = `You are a polite and helpful Customer Support Agent for a Telecommunications Company.

Context from Guides:
%s

Customer Question: %s

Instructions:
1. Be friendly and concise.
2. If the user asks for a price/code, give exact details from the text.
3. Reply with a single JSON object and nothing else: {"found": true|false, "answer": "<text>"}.
4. If the answer is NOT in the context, set "found" to false and "answer" to "%s".
`

	WebPromptTemplate = `You are a Telecom Support Agent. The internal guides didn't have the answer, so use these web search results.

Web Results:
%s

Question: %s

Answer helpfully and summarize the best options.
`
)
