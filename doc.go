// Package recstore maps typed Go records onto SQLite rows and evolves the
// stored schema across versions.
//
// Each record kind declares its fields once per schema version. Opening a
// store resolves which version its data matches and migrates it forward,
// one version at a time, before any record can be read or written:
//
//	people := recstore.NewKind[Person]("Person", func(v int, s *recstore.SchemaBuilder) {
//		s.Field("id", recstore.String, recstore.PrimaryKey())
//		s.Field("name", recstore.String)
//		if v >= 1 {
//			s.Field("age", recstore.Integer, recstore.Default(0))
//		}
//	}).
//		Accessor("id", recstore.Field(func(p *Person) string { return p.ID }, func(p *Person, v string) { p.ID = v })).
//		Accessor("name", recstore.Field(func(p *Person) string { return p.Name }, func(p *Person, v string) { p.Name = v })).
//		Accessor("age", recstore.Field(func(p *Person) int { return p.Age }, func(p *Person, v int) { p.Age = v }))
//
//	st, err := recstore.Open(ctx, "people", recstore.Locator(dir, "people"),
//		recstore.Model{Version: 1, Kinds: []recstore.KindDecl{people}})
//
// Record operations are package functions taking the store and the kind:
// Save, SaveAll, FetchAll, FetchByID, FetchWhere, Delete, DeleteAll and
// Observe. A Store is not safe for concurrent use.
package recstore
