// Package keymap layers user key bindings, written in Lua, over the
// default key encoding.
//
// A keymap script may define a bindings table mapping key specifications
// to the text they send, and an on_key function consulted for every key:
//
//	bindings = {
//	    ["ctrl+alt+t"] = "tmux attach\r",
//	    ["f1"] = "",             -- swallow F1
//	}
//
//	function on_key(code, mods, name)
//	    if name == "ctrl+q" then
//	        return encode("ctrl+c")
//	    end
//	    return nil               -- fall back to the default encoding
//	end
//
// Scripts run in a sandbox with only the base, table, string and math
// libraries; file loading and require are removed. Each on_key call runs
// under a timeout.
package keymap
