// service: слой валидации поверх backend.Backend: проверка входов,
// нормализация пагинации и маппинг ошибок бэкенда в сервисные.
package service

import (
	"errors"

	"github.com/MochaChoco/my-site/internal/backend"
	"github.com/MochaChoco/my-site/internal/config"
)

var (
	// ErrNotFound: сущность отсутствует или уже удалена.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument: неверные входные параметры запроса к сервису.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrInternal: внутренняя ошибка (бэкенд/БД/сеть).
	ErrInternal = errors.New("internal")
)

// Service: бизнес-логика комментариев. Сам реализует backend.Backend,
// поэтому может стоять перед любым бэкендом, в том числе внутри виджета.
type Service struct {
	backend backend.Backend
	limits  config.LimitsConfig
}

var _ backend.Backend = (*Service)(nil)

// New создает новый экземпляр Service.
func New(be backend.Backend, limits config.LimitsConfig) *Service {
	return &Service{
		backend: be,
		limits:  limits,
	}
}
