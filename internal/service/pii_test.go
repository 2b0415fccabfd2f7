package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRedactPII(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "email",
			in:   "bana ali.veli@example.com adresinden ulaşın",
			want: "bana [REDACTED_EMAIL] adresinden ulaşın",
		},
		{
			name: "mobile phone",
			in:   "numaram 532 123 45 67",
			want: "numaram [REDACTED_PHONE]",
		},
		{
			name: "phone with country code",
			in:   "beni +90 532 123 45 67 arayın",
			want: "beni [REDACTED_PHONE] arayın",
		},
		{
			name: "national id",
			in:   "tc kimlik 12345678901 yazdım",
			want: "tc kimlik [REDACTED_ID] yazdım",
		},
		{
			name: "symptom text untouched",
			in:   "3 gündür başım ağrıyor",
			want: "3 gündür başım ağrıyor",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, RedactPII(tc.in))
		})
	}
}
