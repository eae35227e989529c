package carrier

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/99minutos/tracking-service/internal/core/domain"
)

// The carrier payload is decoded into pointer fields so that "required" means
// "present": an empty string or a zero number is accepted, a missing key is not.

type eventPayload struct {
	Data      *string `json:"Data"      validate:"required"`
	Status    *string `json:"Status"    validate:"required"`
	IDStatus  *int    `json:"idStatus"  validate:"required"`
	Descricao *string `json:"Descricao" validate:"required"`
}

type deliveryPayload struct {
	Recebedor     *string `json:"Recebedor"      validate:"required"`
	DocRecebedor  *string `json:"Doc Recebedor"  validate:"required"`
	Parentesco    *string `json:"Parentesco"     validate:"required"`
	DataProtocolo *string `json:"Data Protocolo" validate:"required"`
}

type trackingPayload struct {
	PedidoCliente  *string          `json:"PedidoCliente"  validate:"required"`
	ValorFrete     *float64         `json:"ValorFrete"     validate:"required"`
	IDItemParceiro *int64           `json:"idItemParceiro" validate:"required"`
	Cliente        *string          `json:"Cliente"        validate:"required"`
	DtPrevista     *string          `json:"dtPrevista"     validate:"required"`
	Destinatario   *string          `json:"Destinatario"   validate:"required"`
	CodigoRastreio *string          `json:"codigoRastreio" validate:"required"`
	URL            *string          `json:"Url"            validate:"required,url"`
	URLProtocolo   *string          `json:"UrlProtocolo"   validate:"required,url"`
	DadosEntrega   *deliveryPayload `json:"DadosEntrega"   validate:"required"`
	Eventos        []eventPayload   `json:"Eventos"        validate:"required,dive"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report wire names ("Eventos[0].idStatus") instead of Go field names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validatePayload checks p against the carrier schema.
func validatePayload(p *trackingPayload) error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	msgs := make([]string, 0, len(ve))
	for _, fe := range ve {
		msgs = append(msgs, fieldError(fe))
	}
	return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(msgs, "; "))
}

func fieldError(fe validator.FieldError) string {
	field := strings.TrimPrefix(fe.Namespace(), "trackingPayload.")
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "url":
		return field + " must be a valid URL"
	default:
		return fmt.Sprintf("%s failed validation (%s)", field, fe.Tag())
	}
}

// toDomain converts a validated payload.
func (p *trackingPayload) toDomain() *domain.CarrierResponse {
	events := make([]domain.RawEvent, 0, len(p.Eventos))
	for _, e := range p.Eventos {
		events = append(events, domain.RawEvent{
			Date:        *e.Data,
			Status:      *e.Status,
			StatusID:    *e.IDStatus,
			Description: *e.Descricao,
		})
	}

	return &domain.CarrierResponse{
		ClientOrderID: *p.PedidoCliente,
		FreightValue:  *p.ValorFrete,
		PartnerItemID: *p.IDItemParceiro,
		ClientName:    *p.Cliente,
		ExpectedDate:  *p.DtPrevista,
		Addressee:     *p.Destinatario,
		TrackingCode:  *p.CodigoRastreio,
		TrackingURL:   *p.URL,
		ProtocolURL:   *p.URLProtocolo,
		DeliveryReceipt: domain.DeliveryReceipt{
			Receiver:         *p.DadosEntrega.Recebedor,
			ReceiverDocument: *p.DadosEntrega.DocRecebedor,
			Relationship:     *p.DadosEntrega.Parentesco,
			ProtocolDate:     *p.DadosEntrega.DataProtocolo,
		},
		Events: events,
	}
}
