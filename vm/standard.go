package vm

// StandardWords returns the built-in word library.
func StandardWords() []Word {
	var words []Word
	words = append(words, stackPrimitives()...)
	words = append(words, mathPrimitives()...)
	words = append(words, listPrimitives()...)
	words = append(words, queryPrimitives()...)
	words = append(words, dataPrimitives()...)
	words = append(words, stylePrimitives()...)
	return words
}

// StandardVocabulary returns a new vocabulary holding the built-in words.
func StandardVocabulary() *Vocabulary {
	return NewVocabulary(StandardWords()...)
}
