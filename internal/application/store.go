package application

import "context"

// ListFilter narrows List results. Zero values mean no filter.
type ListFilter struct {
	Status Status
	Limit  int
}

// Store is the keyed application store. Reads return copies; all writes go
// through Update, which applies fn atomically and discards the change when
// fn returns an error.
type Store interface {
	Create(ctx context.Context, app *Application) error
	Get(ctx context.Context, id string) (*Application, error)
	List(ctx context.Context, filter ListFilter) ([]*Application, error)
	Update(ctx context.Context, id string, fn func(app *Application) error) (*Application, error)
	Count(ctx context.Context) (int, error)
}
