// Package events defines the typed events published by an assistant session
// and the [Broadcaster] that delivers them.
//
// Event kinds are grouped by receiver-facing namespaces:
//
//   - user_input.*
//   - assistant_response.*
//   - assistant_playback.*
//   - turn_state.*
//
// user_input events
//
//   - UserSpeechStarted (user_input.speech_started): voice input began.
//   - UserSpeechEnded (user_input.speech_ended): voice input ended.
//   - UserTranscriptInterim (user_input.transcript_interim): provisional
//     transcript while the user is still speaking.
//   - UserTranscriptFinal (user_input.transcript_final): terminal transcript
//     of the utterance, used as the next prompt.
//
// assistant_response events
//
//   - AssistantResponseSegment (assistant_response.segment): visible response
//     text with reasoning spans removed.
//   - AssistantResponseFinal (assistant_response.final): response stream is
//     complete; carries the unfiltered response.
//
// assistant_playback events
//
//   - AssistantPlaybackStarted (assistant_playback.started): a batch is about
//     to be spoken.
//   - AssistantPlaybackEnded (assistant_playback.ended): the batch finished
//     or failed. Started and ended events of one batch always bracket it
//     before the next batch's events.
//
// turn_state events
//
//   - TurnStarted (turn_state.started): a prompt was accepted.
//   - TurnCompleted (turn_state.completed): the turn was streamed and spoken.
//   - TurnFailed (turn_state.failed): the stream failed; speech already
//     queued was still played.
package events
