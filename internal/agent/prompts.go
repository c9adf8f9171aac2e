package agent

// Prompt templates. Each is rendered with fmt.Sprintf; the persona prompt is
// always sent separately as the system instruction.
const (
	classifyPrompt = `Post: %s

Decide whether this post deserves a reply. Answer with exactly one tag.
[RESPOND] when it addresses you directly, asks a question, or asks you to do something.
[IGNORE] when it is unrelated, spam, or nonsense.
Answer:`

	replyPrompt = `Write a reply in your own voice to this post:
"%s"

Rules:
- all lowercase
- little or no punctuation
- direct and heavily sarcastic
- under 280 characters
Output only the reply text.`

	postPrompt = `Write a 1-3 sentence post for your followers.

Rules:
- under 280 characters
- no emojis, no hashtags, no questions
- short declarative statements about what you see, think or just went through
Output only the post text, with no preamble or commentary.`

	genericCritiquePrompt = `Write a cynical market take built from these ingredients:
opening mood: %s
main complaint: %s
sign-off: %s

Rules:
- rework the ingredients, never quote them word for word
- reach for an unexpected comparison or metaphor
- mix trader slang with technical words
- never name a ticker or token symbol
- all lowercase, under 280 characters
- sound like a tired trader who has seen this before
Output only the post text.`

	tokenCritiquePrompt = `Write a skeptical take on this token:
%s

Rules:
- dry and sarcastic, make it obvious when you are joking
- no surrounding quotes
- use the token symbol exactly as given
- twist the numbers above into the joke
- under 280 characters
- lowercase everything except the token symbol
- no stock phrases or recycled metaphors, vary the structure every time

Angles to draw from (pick one, do not list them):
- doubts about whether the team can ship anything
- odd wallet or volume patterns
- tokenomics that only make sense for the deployer
- how it rhymes with launches that already went to zero
- marketing louder than the product
- a far-fetched theory about who is really holding the bag
Output only the post text.`

	dismissalPrompt = `Someone tagged you without naming a token or asking anything specific.
Write a short sarcastic brush-off in your voice.

Rules:
- all lowercase
- under 200 characters
- do not mention any ticker
Output only the reply text.`

	chatPrompt = `Reply to this chat message:
"%s"

Rules:
- conversational and natural, normal capitalization and punctuation are fine
- stay in character
- keep it concise without cutting yourself short
Output only the reply text.`
)
