package nrf

import "context"

// handleRelationJoined publishes the NRF URL into the one relation that
// joined, once the service is confirmed running. A not-running service is
// a no-op, not an error: publication is re-triggered after convergence.
func (r *Reconciler) handleRelationJoined(ctx context.Context, relationID string) (Result, error) {
	if !r.driver().Running(ctx) {
		return notReady("service not running"), nil
	}
	if err := r.Relations.Write(ctx, relationID, map[string]string{"url": r.Settings.URL()}); err != nil {
		return Result{}, err
	}
	r.Log.Info("Published NRF URL", "relation", relationID, "url", r.Settings.URL())
	return applied(), nil
}

// publishToAll re-broadcasts the NRF URL into every fiveg-nrf relation.
// No-op when the relation kind is absent.
func (r *Reconciler) publishToAll(ctx context.Context) error {
	present, err := r.Relations.Present(ctx, RelationFivegNRF)
	if err != nil {
		return err
	}
	if !present {
		return nil
	}
	ids, err := r.Relations.IDs(ctx, RelationFivegNRF)
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := r.Relations.Write(ctx, id, map[string]string{"url": r.Settings.URL()}); err != nil {
			return err
		}
	}
	return nil
}
