package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Avatar menunjuk ke objek gambar di avatar host.
type Avatar struct {
	StorageKey string `bson:"storageKey" json:"storageKey"`
	URL        string `bson:"url" json:"url"`
}

// User adalah satu-satunya dokumen yang disimpan. Task disimpan di dalamnya.
// Field rahasia tidak pernah ikut di-encode ke JSON response.
type User struct {
	ID           primitive.ObjectID `bson:"_id" json:"_id"`
	Name         string             `bson:"name" json:"name"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash string             `bson:"password" json:"-"`
	Avatar       *Avatar            `bson:"avatar" json:"avatar,omitempty"`
	Verified     bool               `bson:"verified" json:"verified"`

	OTP       *int       `bson:"otp" json:"-"`
	OTPExpiry *time.Time `bson:"otpExpiry" json:"-"`

	ResetPasswordOTP       *int       `bson:"resetPasswordOtp" json:"-"`
	ResetPasswordOTPExpiry *time.Time `bson:"resetPasswordOtpExpiry" json:"-"`

	Tasks     []Task    `bson:"tasks" json:"tasks"`
	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`

	// Version dinaikkan setiap kali dokumen disimpan (compare-and-swap).
	Version int64 `bson:"version" json:"-"`
}

type Task struct {
	ID          primitive.ObjectID `bson:"_id" json:"_id"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description" json:"description"`
	Completed   bool               `bson:"completed" json:"completed"`
	CreatedAt   time.Time          `bson:"createdAt" json:"createdAt"`
}

// SetOTP sets the verification code together with its expiry.
func (u *User) SetOTP(code int, expiry time.Time) {
	u.OTP = &code
	u.OTPExpiry = &expiry
}

func (u *User) ClearOTP() {
	u.OTP = nil
	u.OTPExpiry = nil
}

// OTPValid reports whether code matches the stored verification code and it
// has not expired at now.
func (u *User) OTPValid(code int, now time.Time) bool {
	return otpValid(u.OTP, u.OTPExpiry, code, now)
}

func (u *User) SetResetOTP(code int, expiry time.Time) {
	u.ResetPasswordOTP = &code
	u.ResetPasswordOTPExpiry = &expiry
}

func (u *User) ClearResetOTP() {
	u.ResetPasswordOTP = nil
	u.ResetPasswordOTPExpiry = nil
}

func (u *User) ResetOTPValid(code int, now time.Time) bool {
	return otpValid(u.ResetPasswordOTP, u.ResetPasswordOTPExpiry, code, now)
}

func otpValid(stored *int, expiry *time.Time, code int, now time.Time) bool {
	if stored == nil || expiry == nil {
		return false
	}
	return *stored == code && expiry.After(now)
}

// AddTask appends a new, not yet completed task and returns it.
func (u *User) AddTask(title, description string, now time.Time) Task {
	task := Task{
		ID:          primitive.NewObjectID(),
		Title:       title,
		Description: description,
		CreatedAt:   now,
	}
	u.Tasks = append(u.Tasks, task)
	return task
}

// RemoveTask drops the task with the given id. Missing ids are ignored.
func (u *User) RemoveTask(id primitive.ObjectID) bool {
	kept := u.Tasks[:0]
	removed := false
	for _, t := range u.Tasks {
		if t.ID == id {
			removed = true
			continue
		}
		kept = append(kept, t)
	}
	u.Tasks = kept
	return removed
}

// ToggleTask flips the completed flag. It returns false if no task matches.
func (u *User) ToggleTask(id primitive.ObjectID) (Task, bool) {
	for i := range u.Tasks {
		if u.Tasks[i].ID == id {
			u.Tasks[i].Completed = !u.Tasks[i].Completed
			return u.Tasks[i], true
		}
	}
	return Task{}, false
}
