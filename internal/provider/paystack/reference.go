package paystack

import (
	"crypto/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// NewReference generates a gateway-correlatable transaction reference.
// ULIDs are unique, lexically sortable by creation time, and never reused.
func NewReference() string {
	return "EVT-" + ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
}

// NewTicketCode generates a human-presentable ticket code, e.g.
// TKT-9F2C-A41B.
func NewTicketCode() string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "TKT-" + id[:4] + "-" + id[4:8]
}
