// Package audio holds the audio pipeline contract used by the control loop,
// a headless pipeline for boards without capture hardware, and the policy
// that absorbs externally supplied PCM at a foreign sample rate.
package audio
