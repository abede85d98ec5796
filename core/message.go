package core

import (
	"log"
	"time"
)

// A Message is an entry in the communication log of a user.
type Message struct {
	ID        int
	TenantID  int
	ToUser    int
	Title     string
	Body      string
	CreatedAt time.Time
}

type MessageDB interface {
	GetMessages(u DBUser, limit, offset int) ([]*Message, error) // newest first
	InsertMessage(m *Message) error                              // sets m.ID
}

// Notify writes a message to the communication log of the user in the background.
// Failures are logged and never reported to the caller.
func (c *CoreDB) Notify(to DBUser, title, body string) {

	if to == nil || c.MessageDB == nil {
		return
	}

	var m = &Message{
		TenantID:  to.TenantID(),
		ToUser:    to.ID(),
		Title:     title,
		Body:      body,
		CreatedAt: time.Now(),
	}

	c.notifications.Add(1)
	go func() {
		defer c.notifications.Done()
		if err := c.MessageDB.InsertMessage(m); err != nil {
			notificationFailuresTotal.Inc()
			log.Printf("error notifying user %d: %v", m.ToUser, err)
		}
	}()
}

// WaitNotifications blocks until all background notifications have finished.
func (c *CoreDB) WaitNotifications() {
	c.notifications.Wait()
}
