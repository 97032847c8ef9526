package api

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserMessageBuckets(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{ErrSessionExpired, MsgSessionExpired},
		{fmt.Errorf("%w: dial tcp: refused", ErrNetwork), MsgNetwork},
		{&APIError{Status: 400, Message: "bad"}, MsgBadRequest},
		{&APIError{Status: 403, Message: "forbidden"}, MsgForbidden},
		{&APIError{Status: 404, Message: "missing"}, MsgNotFound},
		{&APIError{Status: 408, Message: "slow"}, MsgTimeout},
		{&APIError{Status: 429, Message: "limited"}, MsgTooManyRequests},
		{&APIError{Status: 500, Message: "boom"}, MsgServer},
		{&APIError{Status: 503, Message: "down"}, MsgServer},
		{&APIError{Status: 418, Message: "teapot"}, MsgClient},
		{fmt.Errorf("something else"), MsgUnknown},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, UserMessage(tc.err), "err=%v", tc.err)
	}
}

func TestAPIErrorString(t *testing.T) {
	err := &APIError{Status: 404, Message: "station not found"}
	assert.Equal(t, "api: status 404: station not found", err.Error())
}
