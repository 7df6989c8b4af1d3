package skeleton

type SkinEntry struct {
	Name       string // 占位名，slot 与 attachment 时间轴都使用它
	Attachment Attachment
}

type SkinSlot struct {
	Slot        int
	Attachments []SkinEntry
}

type Skin struct {
	Name string
	// 非默认皮肤才有
	Bones      []int
	IK         []int
	Transforms []int
	Paths      []int
	Slots      []SkinSlot
}

// Attachment looks up the named attachment for slot, nil when the skin has none.
func (s *Skin) Attachment(slot int, name string) Attachment {
	if s == nil {
		return nil
	}
	for _, item := range s.Slots {
		if item.Slot != slot {
			continue
		}
		for _, entry := range item.Attachments {
			if entry.Name == name {
				return entry.Attachment
			}
		}
	}
	return nil
}

func (s *Skin) Each(fn func(slot int, entry SkinEntry)) {
	if s == nil {
		return
	}
	for _, item := range s.Slots {
		for _, entry := range item.Attachments {
			fn(item.Slot, entry)
		}
	}
}
