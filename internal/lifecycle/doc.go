// Package lifecycle coordinates the initialisation and teardown of the
// playback driver set.
//
// The Coordinator is a small state machine driven by seven commands:
//
//	INIT_PRE               resolve and bind the selected backend of each category
//	INIT(set)              allocate the live backends of the categories in set
//	UNINIT(set)            release them again, honouring borrowed ownership
//	DEINIT                 destroy every bound backend (idempotent)
//	SET_NONBLOCK_STATE     push the combined nonblocking policy to audio/video
//	SET_REFRESH_RATE(hz)   adopt a new monitor rate and re-derive system rates
//	UPDATE_SYSTEM_AV_INFO  adopt new A/V info, reinitialise, restart recording
//
// Ordering matters: UNINIT always walks menu, location, camera, audio, the
// shared video/input context, then the owned data of video, input and audio.
// A category whose resource is borrowed by another category is never
// destroyed by its own UNINIT.
//
// # Thread Safety
//
// The Coordinator is not safe for concurrent use and must never be re-entered.
// Run it inside a Loop, which owns it on a single goroutine and serialises
// every command submitted from the HTTP API, MQTT or the main loop:
//
//	loop := lifecycle.NewLoop(coord)
//	go loop.Run(ctx)
//	res, err := loop.Submit(ctx, lifecycle.Request{Command: lifecycle.CommandInitPre})
//
// Reconfiguration is best effort: a backend that fails to apply a new rate or
// nonblocking state is reported in Result.Failures and logged, and the
// remaining backends are still updated. Nothing is rolled back.
package lifecycle
