package hub

import "encoding/json"

// TimeLayout formats the date and time envelope fields.
const TimeLayout = "2006-01-02 15:04:05"

const (
	MessageJoined = "joined forum"
	MessageLeft   = "left forum"
)

// Metadata is bound to a connection at admission and never changes.
type Metadata struct {
	ID    string `json:"id"`
	Color int    `json:"color"`
	Date  string `json:"date"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Envelope is the JSON document every member receives.
type Envelope struct {
	Metadata
	Message            string `json:"message"`
	Time               string `json:"time"`
	ActiveParticipants int    `json:"activeparticipants"`
}

func (e Envelope) encode() ([]byte, error) {
	return json.Marshal(e)
}
