package core

import (
	"fmt"
	"strings"
	"time"
)

// A Comment is a note of a user on a release.
type Comment struct {
	ID        int
	TenantID  int
	ReleaseID int
	WriterID  int
	Body      string
	CreatedAt time.Time
}

// Comments are deleted together with their release.
type CommentDB interface {
	DeleteComment(cm *Comment) error
	GetComment(tenantID, id int) (*Comment, error)
	GetComments(tenantID, releaseID int) ([]*Comment, error) // newest first
	InsertComment(cm *Comment) error                         // sets cm.ID
}

// AddComment adds a comment of u to the release. Everyone in the tenant can comment.
func (c *CoreDB) AddComment(u DBUser, releaseID int, body string) (*Comment, error) {

	r, err := c.GetTenantRelease(u, releaseID)
	if err != nil {
		return nil, err
	}

	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrEmptyComment
	}

	var cm = &Comment{
		TenantID:  r.TenantID,
		ReleaseID: r.ID,
		WriterID:  u.ID(),
		Body:      body,
		CreatedAt: time.Now(),
	}
	if err := c.CommentDB.InsertComment(cm); err != nil {
		return nil, err
	}

	c.Notify(
		u,
		fmt.Sprintf("Comment Was Added on Release '%s'", r.Name),
		fmt.Sprintf("Comment was added on release '%s'. Comment: '%s'", r.Name, cm.Body),
	)
	return cm, nil
}

// ReleaseComments returns the comments of a release in the tenant of u, newest first.
func (c *CoreDB) ReleaseComments(u DBUser, releaseID int) ([]*Comment, error) {
	r, err := c.GetTenantRelease(u, releaseID)
	if err != nil {
		return nil, err
	}
	return c.CommentDB.GetComments(r.TenantID, r.ID)
}

// RemoveComment deletes a comment. Only its writer may do that.
func (c *CoreDB) RemoveComment(u DBUser, id int) error {

	if u == nil {
		return ErrUnauthorized
	}

	cm, err := c.CommentDB.GetComment(u.TenantID(), id)
	if err != nil {
		return err
	}
	if cm.WriterID != u.ID() {
		return ErrUnauthorized
	}

	if err := c.CommentDB.DeleteComment(cm); err != nil {
		return err
	}

	c.Notify(
		u,
		fmt.Sprintf("Comment '%d' Was Deleted", cm.ID),
		fmt.Sprintf("Comment '%d' was deleted", cm.ID),
	)
	return nil
}
