package carrier

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/99minutos/tracking-service/internal/core/domain"
)

func errorsIsValidation(err error) bool {
	return errors.Is(err, domain.ErrValidation)
}

func decode(t *testing.T, body string) *trackingPayload {
	t.Helper()
	var p trackingPayload
	require.NoError(t, json.Unmarshal([]byte(body), &p))
	return &p
}

func TestValidatePayload_Valid(t *testing.T) {
	p := decode(t, validBody)
	require.NoError(t, validatePayload(p))

	resp := p.toDomain()
	assert.Equal(t, "ACME", resp.ClientName)
	assert.Equal(t, "Maria", resp.Addressee)
	assert.Equal(t, "https://track.example.com/ABC123/protocol", resp.ProtocolURL)
	assert.Equal(t, domain.DeliveryReceipt{}, resp.DeliveryReceipt)
}

func TestValidatePayload_EmptyValuesArePresent(t *testing.T) {
	body := strings.Replace(validBody, `"ValorFrete": 12.5`, `"ValorFrete": 0`, 1)
	body = strings.Replace(body, `"Cliente": "ACME"`, `"Cliente": ""`, 1)

	require.NoError(t, validatePayload(decode(t, body)))
}

func TestValidatePayload_Failures(t *testing.T) {
	tests := []struct {
		name    string
		from    string
		to      string
		wantMsg string
	}{
		{"missing top-level field", `"codigoRastreio": "ABC123",`, "", "codigoRastreio is required"},
		{"missing delivery receipt field", `"Doc Recebedor": "",`, "", "DadosEntrega.Doc Recebedor is required"},
		{"missing event field", `"idStatus": 101,`, "", "Eventos[1].idStatus is required"},
		{"null events", `"Eventos": [`, `"Eventos": null, "x": [`, "Eventos is required"},
		{"invalid url", `"Url": "https://track.example.com/ABC123"`, `"Url": "not a url"`, "Url must be a valid URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := strings.Replace(validBody, tt.from, tt.to, 1)
			err := validatePayload(decode(t, body))

			require.ErrorIs(t, err, domain.ErrValidation)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}
