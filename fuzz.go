package htmling

func Fuzz(data []byte) int {
	var collection, err = NewBundle().
		AddTemplateString("fuzz.html", string(data)).
		Compile()
	if err != nil {
		return 0
	}

	if _, err = collection.Render("fuzz.html", nil, ""); err != nil {
		return 0
	}
	return 1
}
