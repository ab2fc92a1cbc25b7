// Package mqtt connects the playback daemon to an MQTT broker.
//
// The daemon publishes its online status (with a Last Will so crashes are
// visible), retained per-category driver state and lifecycle events, and
// accepts lifecycle commands from remote controllers. The client reconnects
// automatically and restores its subscriptions on every reconnect.
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.LifecycleCommand(), 1,
//	    func(topic string, payload []byte) error {
//	        return handle(payload)
//	    })
//
// Topic layout:
//
//	playback/system/status                   online/offline (retained, LWT)
//	playback/driver/{category}/state         driver state (retained)
//	playback/core/event/{command}            lifecycle events
//	playback/command/lifecycle               lifecycle commands (subscribed)
//	playback/response/lifecycle/{request_id} command results
package mqtt
