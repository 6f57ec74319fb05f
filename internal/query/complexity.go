package query

// Complexity prices a parsed query. Each text term costs 1 (a phrase costs
// its word count), each condition costs half a point per argument, containers
// sum their children and scope switches are free. Callers compare the result
// against their configured budget and reject the query before any predicate
// is built.
func Complexity(tokens []Token) float64 {
	var total float64
	for _, tok := range tokens {
		total += tokenComplexity(tok)
	}
	return total
}

func tokenComplexity(tok Token) float64 {
	switch t := tok.(type) {
	case Text:
		if t.Phrase {
			return float64(len(t.Words()))
		}
		return 1
	case AnyText:
		var sum float64
		for _, c := range t.Children {
			sum += tokenComplexity(c)
		}
		return sum
	case SeqTexts:
		var sum float64
		for _, c := range t.Children {
			sum += tokenComplexity(c)
		}
		return sum
	case InScope:
		return tokenComplexity(t.Text)
	case Condition:
		return 0.5 * float64(len(t.Args))
	}
	return 0
}
