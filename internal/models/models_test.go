package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestOTPValid(t *testing.T) {
	now := time.Now()
	u := &User{}
	assert.False(t, u.OTPValid(0, now), "no otp set")

	u.SetOTP(123, now.Add(time.Minute))
	assert.True(t, u.OTPValid(123, now))
	assert.False(t, u.OTPValid(124, now))
	assert.False(t, u.OTPValid(123, now.Add(time.Minute)), "expiry is exclusive")

	u.ClearOTP()
	assert.Nil(t, u.OTP)
	assert.Nil(t, u.OTPExpiry)
	assert.False(t, u.OTPValid(123, now))
}

func TestResetOTPIndependentOfVerificationOTP(t *testing.T) {
	now := time.Now()
	u := &User{}
	u.SetOTP(1, now.Add(time.Minute))
	u.SetResetOTP(2, now.Add(time.Minute))

	assert.False(t, u.ResetOTPValid(1, now))
	assert.True(t, u.ResetOTPValid(2, now))

	u.ClearResetOTP()
	assert.True(t, u.OTPValid(1, now))
	assert.False(t, u.ResetOTPValid(2, now))
}

func TestTaskOperations(t *testing.T) {
	now := time.Now().UTC()
	u := &User{}
	a := u.AddTask("a", "first", now)
	b := u.AddTask("b", "", now)
	require.Len(t, u.Tasks, 2)
	assert.False(t, a.Completed)
	assert.NotEqual(t, a.ID, b.ID)

	toggled, ok := u.ToggleTask(a.ID)
	require.True(t, ok)
	assert.True(t, toggled.Completed)
	toggled, _ = u.ToggleTask(a.ID)
	assert.False(t, toggled.Completed)

	_, ok = u.ToggleTask(primitive.NewObjectID())
	assert.False(t, ok)

	assert.False(t, u.RemoveTask(primitive.NewObjectID()))
	assert.Len(t, u.Tasks, 2)
	assert.True(t, u.RemoveTask(a.ID))
	require.Len(t, u.Tasks, 1)
	assert.Equal(t, b.ID, u.Tasks[0].ID)
}

func TestUserJSONHidesSecrets(t *testing.T) {
	u := &User{ID: primitive.NewObjectID(), Name: "N", Email: "n@example.com", PasswordHash: "hash"}
	u.SetOTP(42, time.Now())
	u.SetResetOTP(43, time.Now())

	raw, err := json.Marshal(u)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	for _, key := range []string{"password", "PasswordHash", "otp", "OTP", "version", "Version"} {
		assert.NotContains(t, out, key)
	}
	assert.Equal(t, "n@example.com", out["email"])
}
