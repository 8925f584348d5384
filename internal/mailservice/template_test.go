package mailservice

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseTemplate(t *testing.T) {
	template := &Template{}

	testCases := []struct {
		name         string
		templateName string
		data         any
		contains     string
		expectedErr  bool
	}{
		{
			name:         "welcome",
			templateName: WelcomeTemplate,
			data:         RegisteredUser{Email: "ada@example.com", Name: "Ada"},
			contains:     "Welcome to Quill, Ada!",
		},
		{
			name:         "contact",
			templateName: ContactTemplate,
			data:         ContactMessage{Name: "Ada", Email: "ada@example.com", Phone: "555", Message: "Hello"},
			contains:     "New message from Ada",
		},
		{
			name:         "invalid template name",
			templateName: "invalid_template.html",
			data:         nil,
			expectedErr:  true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, p, h, err := template.ParseTemplate(tc.templateName, tc.data)
			assert.Equal(t, tc.expectedErr, err != nil)

			if err == nil {
				assert.Equal(t, tc.contains, s.String())
				assert.NotEmpty(t, p.String())
				assert.NotEmpty(t, h.String())
			}
		})
	}
}

func TestParseTemplate_EscapesContactMessage(t *testing.T) {
	template := &Template{}

	_, _, h, err := template.ParseTemplate(ContactTemplate, ContactMessage{Name: "Eve", Message: "<script>alert(1)</script>"})
	assert.NoError(t, err)
	assert.NotContains(t, h.String(), "<script>")
}
