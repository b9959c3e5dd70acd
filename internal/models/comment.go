package models

import "time"

// Comment is a single entry in an event's discussion thread
type Comment struct {
	ID        string    `bson:"id" json:"id"`
	AuthorID  string    `bson:"author_id" json:"author_id"`
	Text      string    `bson:"text" json:"text"`
	CreatedAt time.Time `bson:"created_at" json:"created_at"`
}

// AddCommentRequest represents the data needed to comment on an event
type AddCommentRequest struct {
	Text string `json:"text" binding:"required,max=1000"`
}
