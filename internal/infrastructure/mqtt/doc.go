// Package mqtt provides MQTT connectivity for HomeAlone.
//
// HomeAlone uses MQTT in two directions:
//   - inbound: relay commands on homealone/command/relay/<module>.<channel>
//   - outbound: the outcome of every dispatched command, retained on
//     homealone/state/relay/<module>.<channel>
//
// The service announces itself on homealone/system/status and registers a
// Last Will so the broker marks it offline after a crash.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.AllRelayCommands(), client.QoS(),
//	    func(topic string, payload []byte) error {
//	        return bridge.HandleMessage(ctx, topic, payload)
//	    })
//
// TLS is enabled with broker.tls; credentials come from config or the
// HOMEALONE_MQTT_USERNAME / HOMEALONE_MQTT_PASSWORD environment variables.
package mqtt
