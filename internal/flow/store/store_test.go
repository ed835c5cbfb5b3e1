package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketflow/internal/flow/models"
	dErrors "ticketflow/pkg/domain-errors"
)

func ptr[T any](v T) *T { return &v }

func filledForm() models.ProfileForm {
	return models.ProfileForm{
		Student: models.StudentForm{
			Email:              "a@uni.edu",
			OTP:                "123456",
			FullName:           "A",
			RegistrationNumber: "1",
			Department:         "CS",
			Year:               "2",
			Phone:              "999",
			TransactionID:      "TXN1",
			PaymentConfirmed:   true,
			PaymentStatus:      models.PaymentPending,
		},
		Guest: models.GuestForm{
			Email:      "g@college.edu",
			Name:       "G",
			RollNumber: "R1",
			College:    "Other College",
			Department: "EE",
			Phone:      "888",
		},
	}
}

func TestMergeEmptyPatchIsNoOp(t *testing.T) {
	s := Restore(filledForm())
	s.Merge(models.FormPatch{})
	assert.Equal(t, filledForm(), s.Get())

	empty := New()
	empty.Merge(models.FormPatch{})
	assert.Equal(t, models.ProfileForm{}, empty.Get())
}

func TestMergeOverwritesOnlySetFields(t *testing.T) {
	s := Restore(filledForm())
	s.Merge(models.FormPatch{
		Student: models.StudentPatch{
			PaymentStatus:    ptr(models.PaymentCompleted),
			PaymentConfirmed: ptr(false),
		},
		Guest: models.GuestPatch{Phone: ptr("")},
	})

	got := s.Get()
	want := filledForm()
	want.Student.PaymentStatus = models.PaymentCompleted
	want.Student.PaymentConfirmed = false
	want.Guest.Phone = ""
	assert.Equal(t, want, got)
}

func TestSubRecordsAreIndependent(t *testing.T) {
	s := New()
	s.Merge(models.FormPatch{Student: models.StudentPatch{Email: ptr("student@uni.edu"), OTP: ptr("111111")}})
	s.Merge(models.FormPatch{Guest: models.GuestPatch{Email: ptr("guest@other.edu")}})

	got := s.Get()
	assert.Equal(t, "student@uni.edu", got.Student.Email)
	assert.Equal(t, "111111", got.Student.OTP)
	assert.Equal(t, "guest@other.edu", got.Guest.Email)
	assert.Empty(t, got.Guest.OTP)
}

func TestResetAll(t *testing.T) {
	s := Restore(filledForm())
	s.ResetAll()
	assert.Equal(t, models.ProfileForm{}, s.Get())
}

func TestGetReturnsCopy(t *testing.T) {
	s := Restore(filledForm())
	form := s.Get()
	form.Student.FullName = "changed"
	assert.Equal(t, "A", s.Get().Student.FullName)
}

func TestApplyFields(t *testing.T) {
	t.Run("student fields", func(t *testing.T) {
		s := New()
		err := s.ApplyFields(models.FlowStudent, map[string]any{
			"email":             "a@uni.edu",
			"full_name":         "A",
			"payment_confirmed": true,
		})
		require.NoError(t, err)
		got := s.Get().Student
		assert.Equal(t, "a@uni.edu", got.Email)
		assert.Equal(t, "A", got.FullName)
		assert.True(t, got.PaymentConfirmed)
		assert.Equal(t, models.GuestForm{}, s.Get().Guest)
	})

	t.Run("guest fields", func(t *testing.T) {
		s := New()
		require.NoError(t, s.ApplyFields(models.FlowGuest, map[string]any{"college": "X", "roll_number": "R9"}))
		assert.Equal(t, "X", s.Get().Guest.College)
		assert.Equal(t, "R9", s.Get().Guest.RollNumber)
	})

	t.Run("unknown field rejects the whole edit", func(t *testing.T) {
		s := New()
		err := s.ApplyFields(models.FlowGuest, map[string]any{"name": "G", "year": "2"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
		assert.Empty(t, s.Get().Guest.Name)
	})

	t.Run("generated fields are not editable", func(t *testing.T) {
		err := New().ApplyFields(models.FlowStudent, map[string]any{"payment_status": "completed"})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("wrong type", func(t *testing.T) {
		err := New().ApplyFields(models.FlowStudent, map[string]any{"payment_confirmed": "yes"})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("unknown flow", func(t *testing.T) {
		err := New().ApplyFields(models.FlowNone, map[string]any{"email": "x"})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}
