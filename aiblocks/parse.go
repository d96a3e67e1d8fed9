package aiblocks

// Parse runs both passes over a whole document.
func (s Syntax) Parse(text string) ([]Block, error) {
	raws, err := s.ParseBlocks(text)
	if err != nil {
		return nil, err
	}
	ret := make([]Block, 0, len(raws))
	for _, raw := range raws {
		ret = append(ret, Block{
			Language: raw.Language,
			Params:   raw.Params,
			Messages: s.SplitMessages(raw.Content),
		})
	}
	return ret, nil
}
