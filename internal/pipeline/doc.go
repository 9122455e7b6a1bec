// Package pipeline orchestrates one conversion job from validated URL
// to promoted MP3. Stages run strictly in order; the first stage error
// aborts the job, the workspace is always removed, and the history sink
// is notified without ever influencing the job outcome.
package pipeline
