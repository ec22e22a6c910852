package web

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

type loginForm struct {
	UserName  string `form:"user_name" binding:"required"`
	Password  string `form:"password" binding:"required"`
	ReturnURL string `form:"return_url"`
}

type addAgentForm struct {
	UserName        string `form:"user_name" binding:"required,max=256"`
	Email           string `form:"email" binding:"required,email,max=256"`
	FirstName       string `form:"first_name" binding:"required,max=100"`
	LastName        string `form:"last_name" binding:"required,max=100"`
	PhoneNumber     string `form:"phone_number" binding:"omitempty,max=32"`
	AgentType       string `form:"agent_type" binding:"omitempty,oneof=BASIC VIP DIY"`
	ReferrerID      string `form:"referrer_id"`
	Password        string `form:"password" binding:"required,min=6,max=100"`
	ConfirmPassword string `form:"confirm_password" binding:"required,eqfield=Password"`
}

type editAgentForm struct {
	UserName    string `form:"user_name" binding:"required,max=256"`
	FirstName   string `form:"first_name" binding:"required,max=100"`
	LastName    string `form:"last_name" binding:"required,max=100"`
	PhoneNumber string `form:"phone_number" binding:"omitempty,max=32"`
	Email       string `form:"email" binding:"required,email,max=256"`
}

type referrerForm struct {
	ReferrerID string `form:"referrer_id"`
}

type subscriptionForm struct {
	Price      string `form:"price" binding:"required"`
	Months     int    `form:"months" binding:"required,min=1,max=120"`
	PayerName  string `form:"payer_name" binding:"omitempty,max=200"`
	PayerEmail string `form:"payer_email" binding:"omitempty,email"`
	PayerPhone string `form:"payer_phone" binding:"omitempty,max=32"`
}

type clientForm struct {
	FirstName   string `form:"first_name" binding:"required,max=100"`
	LastName    string `form:"last_name" binding:"required,max=100"`
	Email       string `form:"email" binding:"omitempty,email"`
	PhoneNumber string `form:"phone_number" binding:"omitempty,max=32"`
	Company     string `form:"company" binding:"max=100"`
	Address     string `form:"address" binding:"max=100"`
	City        string `form:"city" binding:"max=100"`
	State       string `form:"state" binding:"max=100"`
	ZipCode     string `form:"zip_code" binding:"max=6"`
	ReferrerID  string `form:"referrer_id"`
}

type resourceForm struct {
	Title       string `form:"title" binding:"required,max=200"`
	Description string `form:"description"`
	URL         string `form:"url" binding:"required,url"`
}

// fieldLabels are the display names of form fields in messages.
var fieldLabels = map[string]string{
	"UserName":        "User name",
	"FirstName":       "First name",
	"LastName":        "Last name",
	"PhoneNumber":     "Phone number",
	"AgentType":       "Agent type",
	"ConfirmPassword": "Confirm password",
	"PayerName":       "Payer name",
	"PayerEmail":      "Payer email",
	"PayerPhone":      "Payer phone",
	"ZipCode":         "Zip code",
	"URL":             "URL",
}

func label(field string) string {
	if l, ok := fieldLabels[field]; ok {
		return l
	}
	return field
}

// validationMessages turns a binding error into one message per field.
func validationMessages(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{"The form could not be read: " + err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		name := label(fe.Field())
		switch fe.Tag() {
		case "required":
			out = append(out, fmt.Sprintf("%s is required.", name))
		case "email":
			out = append(out, fmt.Sprintf("%s is not a valid email address.", name))
		case "url":
			out = append(out, fmt.Sprintf("%s is not a valid URL.", name))
		case "min":
			out = append(out, fmt.Sprintf("%s must be at least %s%s.", name, fe.Param(), unit(fe)))
		case "max":
			out = append(out, fmt.Sprintf("%s must be at most %s%s.", name, fe.Param(), unit(fe)))
		case "eqfield":
			out = append(out, fmt.Sprintf("%s does not match %s.", name, strings.ToLower(label(fe.Param()))))
		case "oneof":
			out = append(out, fmt.Sprintf("%s must be one of %s.", name, fe.Param()))
		default:
			out = append(out, fmt.Sprintf("%s is invalid.", name))
		}
	}
	return out
}

func unit(fe validator.FieldError) string {
	if fe.Kind() == reflect.String {
		return " characters long"
	}
	return ""
}

// safeReturnURL keeps redirects on this site.
func safeReturnURL(u string) string {
	if u == "" || !strings.HasPrefix(u, "/") || strings.HasPrefix(u, "//") || strings.HasPrefix(u, "/\\") {
		return "/member"
	}
	return u
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
