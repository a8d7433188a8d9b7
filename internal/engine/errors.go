package engine

import "errors"

// Ошибки ядра.
var (
	// ErrNoData — обе ветки упали, данных нет ни с одной платформы.
	ErrNoData = errors.New("no data from either platform")

	// ErrEmitFailed — рендер/публикация отчёта не удались.
	ErrEmitFailed = errors.New("report emission failed")

	// ErrNoBranches — в реестре нет ни одной конфигурации ветки.
	ErrNoBranches = errors.New("no branches registered")
)
