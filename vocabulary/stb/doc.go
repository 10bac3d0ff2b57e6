// Package stb provides the Standaardtaakbeschrijving vocabulary: the class and
// predicate names of the STB ontology and the identifier scheme for task,
// phase, theme, activity and document instances.
//
// Namespaces are configuration values, not package globals. Build a
// Vocabulary once and pass it to the components that mint IRIs:
//
//	vocab := stb.NewVocabulary(stb.DefaultNamespaces())
//	task := vocab.Task("101")        // urn:standaardtaakbeschrijving:id/taak/101
//	code := vocab.Predicate(stb.Code) // urn:standaardtaakbeschrijving:def/code
package stb
