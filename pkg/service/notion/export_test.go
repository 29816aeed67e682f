package notion

var (
	PageToNode     = pageToNode
	ParseRelations = parseRelations
	Slugify        = slugify
)
