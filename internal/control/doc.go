// Package control connects the lifecycle loop to the message bus and the
// metrics store.
//
// StatePublisher is a lifecycle.Observer that publishes every event and the
// retained state of each driver category over MQTT. CommandListener accepts
// lifecycle commands from MQTT, submits them through the loop and publishes
// the result on a per-request response topic. Metrics is a lifecycle.Observer
// writing command durations and derived timing to InfluxDB.
//
// Observers run on the loop goroutine, so anything that may block is handed
// to a background goroutine through a bounded queue.
package control
