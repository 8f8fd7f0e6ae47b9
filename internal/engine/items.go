package engine

import (
	"context"
	"fmt"
	"slices"

	"github.com/erazemk/sinalizacao/internal/model"
)

// AddItem creates an item from in and places it at the head of the store.
func (e *Engine) AddItem(ctx context.Context, actorID string, in model.ItemInput) (model.Item, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	actor, err := e.require(actorID, model.CapAddItems)
	if err != nil {
		return model.Item{}, err
	}

	it := model.Item{ID: e.newID()}
	for e.itemIndex(it.ID) >= 0 {
		it.ID = e.newID()
	}
	in.Fill(&it)
	it.CreatedBy = actor.Name
	it.UpdatedBy = actor.Name
	it.UpdatedAt = e.now()

	if e.journal != nil {
		if err := e.journal.PutItem(ctx, it); err != nil {
			return model.Item{}, fmt.Errorf("saving item: %w", err)
		}
	}

	e.items = slices.Insert(e.items, 0, it)
	return it, nil
}

// EditItem replaces every field of an item except its id and creator.
func (e *Engine) EditItem(ctx context.Context, actorID, itemID string, in model.ItemInput) (model.Item, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	actor, err := e.require(actorID, model.CapEditItems)
	if err != nil {
		return model.Item{}, err
	}

	i := e.itemIndex(itemID)
	if i < 0 {
		return model.Item{}, fmt.Errorf("%w: item %q", ErrNotFound, itemID)
	}

	it := model.Item{ID: e.items[i].ID, CreatedBy: e.items[i].CreatedBy}
	in.Fill(&it)
	it.UpdatedBy = actor.Name
	it.UpdatedAt = e.now()

	if e.journal != nil {
		if err := e.journal.PutItem(ctx, it); err != nil {
			return model.Item{}, fmt.Errorf("saving item: %w", err)
		}
	}

	e.items[i] = it
	return it, nil
}

// DeleteItem removes an item. It does not ask for confirmation.
func (e *Engine) DeleteItem(ctx context.Context, actorID, itemID string) (model.Item, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.require(actorID, model.CapDeleteItems); err != nil {
		return model.Item{}, err
	}

	i := e.itemIndex(itemID)
	if i < 0 {
		return model.Item{}, fmt.Errorf("%w: item %q", ErrNotFound, itemID)
	}
	removed := e.items[i]

	if e.journal != nil {
		if err := e.journal.DeleteItem(ctx, itemID); err != nil {
			return model.Item{}, fmt.Errorf("deleting item: %w", err)
		}
	}

	e.items = slices.Delete(e.items, i, i+1)
	return removed, nil
}
