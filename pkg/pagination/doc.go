// Package pagination accumulates the pages of one paginated query.
//
// A Controller owns the accumulated items, the page cursor and the loading
// flags as one State value that is replaced atomically under a mutex:
//
//	ctrl := pagination.New[catalog.CatalogItem]("search")
//	ctrl.Start(ctx, func(ctx context.Context, page int) (catalog.PageOf[catalog.CatalogItem], error) {
//	    return repo.Search(ctx, "coldplay", page, 30)
//	})
//	for ctrl.LoadNextPage(ctx) {
//	}
//
// The controller:
//   - Starts every query at page 1 with an unbounded page count
//   - Admits at most one next-page load at a time
//   - Rolls the cursor back when a next-page load fails, keeping the items
//   - Discards results of a query superseded by a newer Start
//
// Start and LoadNextPage block until their load finished; callers that must
// not block run them in a goroutine and observe State or Subscribe.
package pagination
