// Package store holds the profile form of one flow.
package store

import (
	"fmt"
	"sort"

	"ticketflow/internal/flow/models"
	dErrors "ticketflow/pkg/domain-errors"
)

// Store is the form state of a single flow. It is not safe for concurrent use;
// the owning flow serialises access.
type Store struct {
	form models.ProfileForm
}

func New() *Store {
	return &Store{}
}

// Restore returns a store seeded with form.
func Restore(form models.ProfileForm) *Store {
	return &Store{form: form}
}

// Get returns a copy of the current form.
func (s *Store) Get() models.ProfileForm {
	return s.form
}

// Merge overwrites every field set in p. An empty patch changes nothing.
func (s *Store) Merge(p models.FormPatch) {
	if p.IsEmpty() {
		return
	}
	mergeStudent(&s.form.Student, p.Student)
	mergeGuest(&s.form.Guest, p.Guest)
}

// ResetAll clears every field of both sub-records.
func (s *Store) ResetAll() {
	s.form = models.ProfileForm{}
}

// ApplyFields merges display-layer field edits for one journey.
func (s *Store) ApplyFields(kind models.FlowKind, fields map[string]any) error {
	patch, err := PatchFromFields(kind, fields)
	if err != nil {
		return err
	}
	s.Merge(patch)
	return nil
}

func mergeStudent(dst *models.StudentForm, p models.StudentPatch) {
	setString(&dst.Email, p.Email)
	setString(&dst.OTP, p.OTP)
	setString(&dst.FullName, p.FullName)
	setString(&dst.RegistrationNumber, p.RegistrationNumber)
	setString(&dst.Department, p.Department)
	setString(&dst.Year, p.Year)
	setString(&dst.Phone, p.Phone)
	setString(&dst.TransactionID, p.TransactionID)
	setString(&dst.PassID, p.PassID)
	if p.PaymentConfirmed != nil {
		dst.PaymentConfirmed = *p.PaymentConfirmed
	}
	if p.PaymentStatus != nil {
		dst.PaymentStatus = *p.PaymentStatus
	}
}

func mergeGuest(dst *models.GuestForm, p models.GuestPatch) {
	setString(&dst.Email, p.Email)
	setString(&dst.OTP, p.OTP)
	setString(&dst.Name, p.Name)
	setString(&dst.RollNumber, p.RollNumber)
	setString(&dst.College, p.College)
	setString(&dst.Department, p.Department)
	setString(&dst.Phone, p.Phone)
	setString(&dst.PassID, p.PassID)
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// Editable field names per journey, as sent by the display layer.
var (
	studentFields = map[string]func(*models.StudentPatch, any) error{
		"email":               stringField(func(p *models.StudentPatch, v *string) { p.Email = v }),
		"otp":                 stringField(func(p *models.StudentPatch, v *string) { p.OTP = v }),
		"full_name":           stringField(func(p *models.StudentPatch, v *string) { p.FullName = v }),
		"registration_number": stringField(func(p *models.StudentPatch, v *string) { p.RegistrationNumber = v }),
		"department":          stringField(func(p *models.StudentPatch, v *string) { p.Department = v }),
		"year":                stringField(func(p *models.StudentPatch, v *string) { p.Year = v }),
		"phone":               stringField(func(p *models.StudentPatch, v *string) { p.Phone = v }),
		"transaction_id":      stringField(func(p *models.StudentPatch, v *string) { p.TransactionID = v }),
		"payment_confirmed": func(p *models.StudentPatch, raw any) error {
			b, ok := raw.(bool)
			if !ok {
				return fmt.Errorf("must be a boolean")
			}
			p.PaymentConfirmed = &b
			return nil
		},
	}
	guestFields = map[string]func(*models.GuestPatch, any) error{
		"email":       stringField(func(p *models.GuestPatch, v *string) { p.Email = v }),
		"otp":         stringField(func(p *models.GuestPatch, v *string) { p.OTP = v }),
		"name":        stringField(func(p *models.GuestPatch, v *string) { p.Name = v }),
		"roll_number": stringField(func(p *models.GuestPatch, v *string) { p.RollNumber = v }),
		"college":     stringField(func(p *models.GuestPatch, v *string) { p.College = v }),
		"department":  stringField(func(p *models.GuestPatch, v *string) { p.Department = v }),
		"phone":       stringField(func(p *models.GuestPatch, v *string) { p.Phone = v }),
	}
)

func stringField[P any](set func(*P, *string)) func(*P, any) error {
	return func(p *P, raw any) error {
		s, ok := raw.(string)
		if !ok {
			return fmt.Errorf("must be a string")
		}
		set(p, &s)
		return nil
	}
}

// PatchFromFields translates named field edits into a FormPatch. Unknown
// names and wrongly typed values are rejected as a whole.
func PatchFromFields(kind models.FlowKind, fields map[string]any) (models.FormPatch, error) {
	var patch models.FormPatch

	// sorted so the reported error is deterministic
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	switch kind {
	case models.FlowStudent:
		for _, name := range names {
			set, ok := studentFields[name]
			if !ok {
				return models.FormPatch{}, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("unknown student field %q", name))
			}
			if err := set(&patch.Student, fields[name]); err != nil {
				return models.FormPatch{}, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("field %q %s", name, err))
			}
		}
	case models.FlowGuest:
		for _, name := range names {
			set, ok := guestFields[name]
			if !ok {
				return models.FormPatch{}, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("unknown guest field %q", name))
			}
			if err := set(&patch.Guest, fields[name]); err != nil {
				return models.FormPatch{}, dErrors.New(dErrors.CodeInvalidInput, fmt.Sprintf("field %q %s", name, err))
			}
		}
	default:
		return models.FormPatch{}, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("unknown flow %q", kind))
	}
	return patch, nil
}
