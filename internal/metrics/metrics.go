// Package metrics содержит счётчики Prometheus для ключевых операций ядра.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DeviceRegistrations считает успешные регистрации устройств.
	DeviceRegistrations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "entitlements_device_registrations_total",
		Help: "Successful device registrations, including login refreshes.",
	})

	// DeviceEvictions считает вытеснения наименее активных устройств.
	DeviceEvictions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "entitlements_device_evictions_total",
		Help: "Devices evicted to make room at the tier capacity.",
	})

	// CooldownRejections считает отказы из-за периода охлаждения.
	CooldownRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "entitlements_cooldown_rejections_total",
		Help: "Device registrations rejected by the cooldown policy.",
	})

	// BillingOutcomes считает исходы ежемесячного списания по результату.
	BillingOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "entitlements_billing_outcomes_total",
		Help: "Monthly billing sweep outcomes per user.",
	}, []string{"outcome"})

	// CancellationsProcessed считает применённые отмены подписки.
	CancellationsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "entitlements_cancellations_processed_total",
		Help: "Cancellation requests applied by the daily sweep.",
	})
)
