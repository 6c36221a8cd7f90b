package postgres

import "context"

const nextSequence = `
	INSERT INTO sequences (key, value) VALUES ($1, 1)
	ON CONFLICT (key) DO UPDATE SET value = sequences.value + 1
	RETURNING value`

// Next implements port.SequenceCounter with a single atomic upsert.
func (s *Store) Next(ctx context.Context, key string) (int64, error) {
	var v int64
	if err := s.db.QueryRowContext(ctx, nextSequence, key).Scan(&v); err != nil {
		return 0, mapError(err, "next sequence")
	}
	return v, nil
}
