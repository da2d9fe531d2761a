package authservice

import (
	"errors"
	"sort"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"github.com/starford/mindmaps/internal/apperr"
	"github.com/starford/mindmaps/internal/password"
)

// SignupInput is a registration request.
type SignupInput struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	SecurityQuestion string `json:"security_question"`
	SecurityAnswer   string `json:"security_answer"`
	Hint             string `json:"hint"`
}

func (in SignupInput) validate(policy password.Policy) error {
	return firstError(validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required, is.EmailFormat),
		validation.Field(&in.Password, validation.By(policyRule(policy))),
		validation.Field(&in.SecurityQuestion, validation.Required, validation.RuneLength(3, 200)),
		validation.Field(&in.SecurityAnswer, validation.Required, validation.RuneLength(1, 100)),
		validation.Field(&in.Hint, validation.RuneLength(0, 200)),
	), "email", "password", "security_question", "security_answer", "hint")
}

// ResetInput is a password reset request.
type ResetInput struct {
	Email          string `json:"email"`
	SecurityAnswer string `json:"security_answer"`
	NewPassword    string `json:"new_password"`
}

func (in ResetInput) validate(policy password.Policy) error {
	return firstError(validation.ValidateStruct(&in,
		validation.Field(&in.Email, validation.Required, is.EmailFormat),
		validation.Field(&in.SecurityAnswer, validation.Required, validation.RuneLength(1, 100)),
		validation.Field(&in.NewPassword, validation.By(policyRule(policy))),
	), "email", "security_answer", "new_password")
}

func policyRule(policy password.Policy) validation.RuleFunc {
	return func(v any) error {
		s, _ := v.(string)
		var ve *apperr.ValidationError
		if err := policy.Check(s); errors.As(err, &ve) {
			return errors.New(ve.Reason)
		} else if err != nil {
			return err
		}
		return nil
	}
}

// firstError turns ozzo field errors into a single *apperr.ValidationError,
// picking the earliest field in order.
func firstError(err error, order ...string) error {
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return err
	}
	for _, field := range order {
		if fe, ok := errs[field]; ok && fe != nil {
			return apperr.Validation(field, fe.Error())
		}
	}
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return apperr.Validation(keys[0], errs[keys[0]].Error())
}
