package ai

const systemPrompt = "You are a meticulous assistant to a professional video editor. Follow the output format exactly."

const transcribePrompt = `Transcribe this audio word by word.

Rules:
1. Label every speaker consistently as SPEAKER_00, SPEAKER_01 and so on.
2. Give each word its own start and end time in seconds.
3. Reply with one JSON object holding a single key "words", a list of
   {"word": string, "start": number, "end": number, "speaker": string}.`

const classifyContentPrompt = `Decide whether the transcript below is a Podcast (long form, several topics)
or a Short-form video (brief, one topic).

For a Podcast reply with
{"type": "Podcast", "topics": [{"timestamp": "HH:MM:SS", "topic": "..."}]}
listing where each topic starts.

For a Short-form video reply with
{"type": "Short-form", "topic": "..."}

Transcript (SRT):
%s`

const classifySilencePrompt = `A silence of %.2f seconds occurs in a video between the two lines below.
Label it with exactly one of: pause, dead air, scene change.
- pause: a short, natural break in speech
- dead air: a longer, awkward gap where speech was expected
- scene change: a transition between distinct segments

Reply with the label only.

Before the silence: "%s"
After the silence: "%s"`

const fillerWordsPrompt = `Listen to this audio and find verbal fillers such as "um", "uh" and "ah",
plus words like "like" or "you know" when they are delivered as hesitation
rather than meaning. Judge each one from its acoustic delivery.

Reply with one JSON object holding a single key "filler_words", a list of
{"word": string, "start": "HH:MM:SS.mmm", "end": "HH:MM:SS.mmm",
 "can_be_removed": boolean, "reasoning": string}.`

const retakesPrompt = `Read the transcript below and find retakes: places where the speaker
stumbles and restarts a phrase, or repeats a sentence without adding anything.

Reply with one JSON object holding a single key "retakes_to_remove", a list of
{"start": number, "end": number, "reasoning": string} with times in seconds
covering the part that should be cut.

Transcript (SRT):
%s`

const bRollPrompt = `Read the transcript below and suggest B-roll shots for the moments,
concepts or keywords that would benefit from illustrative footage.

Reply with one JSON object holding a single key "b_roll_suggestions", a list of
{"timestamp": "HH:MM:SS", "suggestion": string}.

Transcript (SRT):
%s`

const silentIntervalsPrompt = `Find every stretch of this recording with no spoken dialogue that an
editor aiming for a tight cut would remove. Background noise, breathing or
movement without words still counts as silent. Ignore gaps shorter than
0.5 seconds.

Reply with one JSON object holding a single key "silent_intervals", a list of
{"start": number, "end": number} in seconds.`
