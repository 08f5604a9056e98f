package modelapi

const (
	ASSISTANT = "assistant"
	SYSTEM    = "system"
	USER      = "user"
)

// JSON_ONLY_INSTRUCTION is the fixed system instruction for every report
// generation call. Structured fields come back as JSON; markdown is always
// derived locally, never requested from the model.
const JSON_ONLY_INSTRUCTION = `
You are a writing engine inside a self-discovery product. Respond in English only.

Respond with exactly ONE JSON object and nothing else:
- no surrounding prose or commentary
- no markdown code fences
- no trailing explanation after the closing brace

Every string value must be plain text. If you are unsure about a field, return
your best attempt rather than omitting it.
`

// PLEASE_BEGIN is the fixed opening utterance used when a turn arrives with an
// empty user message, signalling "request opening greeting".
const PLEASE_BEGIN = "Please begin."
