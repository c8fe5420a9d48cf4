package databases

// Close lets Manager.Close treat every Postgres-backed store uniformly
// without a type switch per backend.
func (p *pgSearch) Close() { p.pool.Close() }
func (p *pgVector) Close() { p.pool.Close() }
func (p *pgGraph) Close()  { p.pool.Close() }
