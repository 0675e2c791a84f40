package mail

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Mail is a private message between two users.
type Mail struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"mail_id"`
	Sender    string             `bson:"sender" json:"sender"`
	Receiver  string             `bson:"receiver" json:"receiver"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	Subject   string             `bson:"subject" json:"subject"`
	Text      string             `bson:"text" json:"text"`
}
