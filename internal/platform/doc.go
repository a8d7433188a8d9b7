// Package platform определяет границу между ядром мониторинга
// и внешними коллабораторами платформ.
//
// Включает:
//   - adapters.go — интерфейсы Authenticator, Extractor, Classifier
//   - grouping.go — распределение записей по отслеживаемым группам
//   - registry.go — реестр конфигураций веток (адаптеры + группировка)
//   - http.go     — адаптеры, делегирующие скрейпинг agent-сервису
//
// Ядро (internal/engine) работает только с этими интерфейсами и ничего
// не знает о браузерной автоматизации или конкретных страницах платформ.
package platform
