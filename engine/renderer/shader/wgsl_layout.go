package shader

// layoutStruct places the members of one struct by the host-shareable rules: each member starts at
// the next multiple of its alignment (or @align), takes its size (or @size), and the struct size is
// rounded up to the largest member alignment. Builtin members take no space.
//
// A runtime-sized array may only be the last member. The struct size is then the fixed prefix before
// it, or one element when the array is the only member.
//
// Parameters:
//   - ps: the struct to lay out
//   - knownTypes: struct layouts resolved so far
//
// Returns:
//   - StructLayout: the member placement
//   - bool: false if a member type is not resolved yet or a runtime array is misplaced
func layoutStruct(ps parsedStruct, knownTypes map[string]wgslTypeLayout) (StructLayout, bool) {
	out := StructLayout{Name: ps.name, Align: 1}
	var offset uint64

	for i, field := range ps.fields {
		if field.isBuiltin {
			continue
		}

		fl, ok := resolveTypeLayout(field.typeName, knownTypes)
		if !ok {
			return StructLayout{}, false
		}
		if field.alignAttr > 0 {
			fl.align = field.alignAttr
		}
		offset = roundUpAlign(fl.align, offset)
		out.Align = max(out.Align, fl.align)

		if isRuntimeArray(field.typeName) {
			if i != len(ps.fields)-1 {
				return StructLayout{}, false
			}
			out.Members = append(out.Members, MemberLayout{Name: field.name, Type: field.typeName, Offset: offset})
			if offset == 0 {
				out.Size = fl.size
			} else {
				out.Size = roundUpAlign(out.Align, offset)
			}
			return out, true
		}

		if field.sizeAttr > 0 {
			fl.size = field.sizeAttr
		}
		out.Members = append(out.Members, MemberLayout{Name: field.name, Type: field.typeName, Offset: offset, Size: fl.size})
		offset += fl.size
	}

	out.Size = roundUpAlign(out.Align, offset)
	return out, true
}

// computeStructLayouts lays out every struct. Structs may reference structs declared later, so
// passes repeat until one makes no progress; structs left over are omitted.
func computeStructLayouts(structs []parsedStruct) map[string]StructLayout {
	layouts := make(map[string]StructLayout, len(structs))
	known := make(map[string]wgslTypeLayout, len(structs))

	pending := structs
	for len(pending) > 0 {
		var deferred []parsedStruct
		for _, ps := range pending {
			sl, ok := layoutStruct(ps, known)
			if !ok {
				deferred = append(deferred, ps)
				continue
			}
			layouts[ps.name] = sl
			known[ps.name] = wgslTypeLayout{size: sl.Size, align: sl.Align}
		}
		if len(deferred) == len(pending) {
			break
		}
		pending = deferred
	}
	return layouts
}

// computeStructSizes reduces computeStructLayouts to the size and alignment resolveTypeLayout consumes.
func computeStructSizes(structs []parsedStruct) map[string]wgslTypeLayout {
	layouts := computeStructLayouts(structs)
	out := make(map[string]wgslTypeLayout, len(layouts))
	for name, sl := range layouts {
		out[name] = wgslTypeLayout{size: sl.Size, align: sl.Align}
	}
	return out
}
