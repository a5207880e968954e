package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEmailFieldsRejectMalformedAddresses(t *testing.T) {
	bad := "not-an-email"
	good := "someone@forum.test"

	tests := []struct {
		name    string
		request interface{ Validate() error }
		wantErr bool
	}{
		{"register valid", RegisterRequest{Username: "alice", Email: good, Password: "secret1"}, false},
		{"register malformed", RegisterRequest{Username: "alice", Email: bad, Password: "secret1"}, true},
		{"request reset valid", RequestResetRequest{Email: good}, false},
		{"request reset malformed", RequestResetRequest{Email: bad}, true},
		{"recovery email valid", SetRecoveryEmailRequest{Email: good}, false},
		{"recovery email malformed", SetRecoveryEmailRequest{Email: bad}, true},
		{"profile without email", UpdateProfileRequest{}, false},
		{"profile valid email", UpdateProfileRequest{Email: &good}, false},
		{"profile malformed email", UpdateProfileRequest{Email: &bad}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.request.Validate()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
