package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMessageValidate(t *testing.T) {
	assert.Error(t, Message{Template: "order-ready"}.Validate())
	assert.Error(t, Message{To: "a@example.com"}.Validate())
	assert.NoError(t, Message{To: "a@example.com", Template: "order-ready"}.Validate())
}

func TestMessageSubject(t *testing.T) {
	assert.Equal(t, "Your order is ready for collection",
		Message{Template: "order-ready"}.Subject())
	assert.Equal(t, "An update on your order",
		Message{Template: "mystery"}.Subject())
}

func TestRender(t *testing.T) {
	body := render(Message{
		To:       "a@example.com",
		Template: "order-ready",
		Vars:     map[string]string{"name": "Alice", "order_no": "BK-000007"},
	})
	assert.Contains(t, body, "Hi Alice,")
	assert.Contains(t, body, "BK-000007")
}
