package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContains(t *testing.T) {
	assert.True(t, contains("E11000 duplicate key error collection: profiles index: email_1", "email"))
	assert.False(t, contains("E11000 duplicate key error collection: profiles index: phone_1", "email"))
}

func TestDuplicateFieldFromError(t *testing.T) {
	cases := []struct {
		msg  string
		want DuplicateField
	}{
		{"dup key: email_1 dup value", DuplicateFieldEmail},
		{"dup key: whatsapp_id_1 dup value", DuplicateFieldWhatsAppID},
		{"dup key: user_id_1 dup value", DuplicateFieldUserID},
		{"dup key: some_other_index dup value", ""},
	}
	for _, c := range cases {
		got := duplicateFieldFromError(errors.New(c.msg), &Profile{})
		assert.Equal(t, c.want, got)
	}
}
