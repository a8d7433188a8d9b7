package platform

import (
	"context"
	"errors"

	"github.com/shaiso/Qlikwatch/internal/domain"
)

// Ошибки контракта адаптеров.
var (
	// ErrSessionExpired — платформа отвергла сохранённые учётные данные.
	// Ветка реагирует повторной аутентификацией перед новой попыткой
	// извлечения.
	ErrSessionExpired = errors.New("session expired")

	// ErrNoCredentials — шаг извлечения вызван до успешного login.
	ErrNoCredentials = errors.New("no credentials for platform")
)

// transientError помечает ошибку как временную (таймаут, сетевой сбой,
// протухшая сессия). Только такие ошибки ретраятся контроллером повторов;
// всё остальное — фатально для ветки.
type transientError struct {
	err error
}

func (e *transientError) Error() string {
	return "transient: " + e.err.Error()
}

func (e *transientError) Unwrap() error {
	return e.err
}

// Transient помечает ошибку адаптера как временную.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &transientError{err: err}
}

// IsTransient сообщает, можно ли ретраить ошибку.
//
// Временными считаются: явно помеченные через Transient, таймауты
// (context.DeadlineExceeded) и протухшая сессия (ErrSessionExpired —
// она дополнительно эскалируется веткой в повторный login).
func IsTransient(err error) bool {
	var te *transientError
	if errors.As(err, &te) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return errors.Is(err, ErrSessionExpired)
}

// Credentials — непрозрачный результат аутентификации (токен, cookies).
// Ядро не интерпретирует содержимое, только передаёт его extractor'у.
type Credentials any

// Authenticator выполняет вход на платформу.
type Authenticator interface {
	// Login аутентифицируется и возвращает учётные данные сессии.
	Login(ctx context.Context) (Credentials, error)
}

// Extractor постранично извлекает записи задач за текущий день.
//
// Контракт пагинации: вызывающий запрашивает страницы начиная с 0,
// пока more == true. Поток конечен: платформа сама сигнализирует
// об отсутствии следующей страницы.
type Extractor interface {
	// ExtractPage возвращает записи страницы page и признак наличия
	// следующей страницы. Возвращает ErrSessionExpired (обёрнутую),
	// если платформа отвергла учётные данные.
	ExtractPage(ctx context.Context, creds Credentials, page int) (records []domain.TaskRecord, more bool, err error)
}

// Classifier выводит статус группы процессов из её записей.
//
// Реализации: rule-based (internal/classify.Rules) и LLM-клиент
// (internal/classify.LLM). Для ядра обе — чёрный ящик.
type Classifier interface {
	Classify(ctx context.Context, group string, records []domain.TaskRecord) (domain.GroupReport, error)
}
