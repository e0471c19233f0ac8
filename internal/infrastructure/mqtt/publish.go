package mqtt

import "fmt"

// maxPayloadSize caps outbound payloads at 1MB.
const maxPayloadSize = 1 << 20

// Publish sends payload to topic and waits for the broker to accept it.
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if err := c.checkPublish(topic, payload, qos); err != nil {
		return err
	}

	return waitToken(c.client.Publish(topic, qos, retained, payload), ErrPublishFailed)
}

// PublishAsync hands payload to paho without waiting for the broker.
// Delivery failures are logged. Use it from loops that must not block.
func (c *Client) PublishAsync(topic string, payload []byte, qos byte) error {
	if err := c.checkPublish(topic, payload, qos); err != nil {
		return err
	}

	token := c.client.Publish(topic, qos, false, payload)
	go func() {
		<-token.Done()
		if err := token.Error(); err != nil {
			c.getLogger().Warn("MQTT async publish failed", "topic", topic, "error", err)
		}
	}()
	return nil
}

// QoS returns the configured default QoS.
func (c *Client) QoS() byte {
	return byte(c.cfg.QoS)
}

func (c *Client) checkPublish(topic string, payload []byte, qos byte) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}
