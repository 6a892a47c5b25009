// Package mqtt provides the broker connection for the irrigation core.
//
// This package manages:
//   - Connection to the broker with automatic reconnect
//   - Publishing with QoS acknowledgment and a bounded wait
//   - Subscriptions that survive reconnects
//   - Retained online/offline status with a Last Will
//
// # Topics
//
// All topics hang off a configurable prefix (default "irrigation"):
//
//	irrigation/measurements   devices publish {client_id, temperature, humidity}
//	irrigation/register       devices announce {client_id, latitude, longitude, timezone}
//	irrigation/decisions      core publishes {client_id}; every device filters on its id
//	irrigation/system/status  retained core status
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(client.Topics().Measurements(), 1, handler)
package mqtt
