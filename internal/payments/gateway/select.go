package gateway

import (
	"fmt"
	"strings"

	"fm_servicios_backend/platform/config"
	"fm_servicios_backend/platform/logger"
)

// Provider names accepted in PAYMENT_PROVIDER.
const (
	ProviderTransbank   = "transbank"
	ProviderMercadoPago = "mercadopago"
)

const (
	webpayReturnPath      = "/api/v1/payments/webpay/return"
	mercadoPagoReturnPath = "/api/v1/payments/mercadopago/return"
)

// Select builds the configured gateway and the return URL it should send
// customers back to. The mock wins over any provider.
func Select(cfg interface {
	config.PaymentConfig
	config.NotificationConfig
}, log *logger.Logger) (Gateway, string, error) {
	base := strings.TrimRight(cfg.GetAppBaseURL(), "/")

	if cfg.IsPaymentGatewayMock() {
		log.Warn("payment gateway mock enabled; every commit is authorized")
		return NewMock(), firstNonEmpty(cfg.GetTransbankReturnURL(), base+webpayReturnPath), nil
	}

	switch cfg.GetPaymentProvider() {
	case ProviderMercadoPago:
		gw, err := NewMercadoPago(cfg.GetMercadoPagoAccessToken(), log)
		if err != nil {
			return nil, "", err
		}
		return gw, firstNonEmpty(cfg.GetMercadoPagoReturnURL(), base+mercadoPagoReturnPath), nil
	case ProviderTransbank, "":
		gw := NewTransbank(TransbankConfig{
			CommerceCode: cfg.GetTransbankCommerceCode(),
			APIKey:       cfg.GetTransbankAPIKey(),
			Live:         cfg.IsTransbankLive(),
			Timeout:      cfg.GetPaymentGatewayTimeout(),
		}, log)
		return gw, firstNonEmpty(cfg.GetTransbankReturnURL(), base+webpayReturnPath), nil
	}
	return nil, "", fmt.Errorf("unknown payment provider %q", cfg.GetPaymentProvider())
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
