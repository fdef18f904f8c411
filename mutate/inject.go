package mutate

import (
	"github.com/hazyhaar/refonte/dom"
)

// inject inserts HTML fragments last, after all shape-changing edits,
// so injected nodes never disturb the selectors of earlier operations.
func (e *Engine) inject(doc *dom.Document, injections []Injection, log *ChangeLog) {
	for _, inj := range injections {
		if inj.HTML == "" {
			log.omitted(ChangeInject, inj.Selector, "", "empty fragment")
			continue
		}

		target := doc.Body()
		if inj.Selector != "" {
			loc, err := dom.ParseLocator(inj.Selector)
			if err != nil {
				log.omitted(ChangeInject, inj.Selector, "", "bad selector")
				continue
			}
			if target = doc.Resolve(loc); target == nil {
				log.omitted(ChangeInject, inj.Selector, "", "selector matched nothing")
				continue
			}
		}

		var err error
		if inj.Position == Prepend {
			err = dom.PrependFragment(target, inj.HTML)
		} else {
			err = dom.AppendFragment(target, inj.HTML)
		}
		if err != nil {
			log.omitted(ChangeInject, inj.Selector, snippet(inj.HTML), "fragment parse failed")
			continue
		}
		log.applied(ChangeInject, inj.Selector, "", snippet(inj.HTML), inj.Reason)
	}
}
