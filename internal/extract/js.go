package extract

// Selectors used as content-presence signals before extraction begins.
const (
	directoryCardSelector = `div[class*="game-card"]`
	streamTitleSelector   = `h3[class*="CoreText"]`
)

// scrollAndMeasureJS triggers one incremental-load round and reports the
// height before new content settles; the caller re-measures after a pause.
const scrollAndMeasureJS = `(() => {
	window.scrollTo(0, document.body.scrollHeight);
	return document.body.scrollHeight;
})()`

// categoryCardsJS reads each directory card as one structural unit. A card
// that throws maps to null and is skipped on the Go side.
const categoryCardsJS = `(() => {
	const cards = Array.from(document.querySelectorAll('div[class*="game-card"]'));
	return cards.map((card) => {
		try {
			const heading = card.querySelector('h2');
			const viewerText = card.querySelector('p');
			const image = card.querySelector('img');
			const tags = Array.from(card.querySelectorAll('button[class*="tw-tag"] span'))
				.map((el) => el.textContent.trim())
				.filter((t) => t.length > 0);
			return {
				name: heading ? heading.textContent.trim() : '',
				viewers: viewerText ? viewerText.textContent.trim() : '',
				tags: tags,
				image: image ? (image.getAttribute('src') || '') : '',
			};
		} catch (err) {
			return null;
		}
	});
})()`

// streamCardsJS reads each stream preview card as one structural unit:
// title, channel, viewer text, and tags come from the same card element.
const streamCardsJS = `(() => {
	const cards = Array.from(document.querySelectorAll('article'));
	const out = [];
	for (const card of cards) {
		try {
			const title = card.querySelector('h3[class*="CoreText"], h3');
			const channel = card.querySelector('[data-a-target="preview-card-channel-link"], p[title]');
			const viewers = card.querySelector('div[class*="ScMediaCardStatWrapper"]');
			const tags = Array.from(card.querySelectorAll('button[class*="ScTag"]'))
				.map((el) => el.textContent.trim())
				.filter((t) => t.length > 0);
			if (!title && !channel) {
				continue;
			}
			out.push({
				title: title ? title.textContent.trim() : '',
				channel: channel ? channel.textContent.trim() : '',
				viewers: viewers ? viewers.textContent.trim() : '',
				tags: tags,
			});
		} catch (err) {
			// skip this card, keep the rest
		}
	}
	return out;
})()`

// streamGroupsJS collects the four sibling element groups independently.
// Only used when per-card extraction yields nothing; the groups may have
// mismatched lengths and are validated before pairing.
const streamGroupsJS = `(() => {
	const texts = (selector) => Array.from(document.querySelectorAll(selector))
		.map((el) => el.textContent.trim())
		.filter((t) => t.length > 0);
	return {
		titles: texts('h3[class*="CoreText"]'),
		channels: texts('[data-a-target="preview-card-channel-link"]'),
		viewers: texts('div[class*="ScMediaCardStatWrapper"]'),
		tags: texts('button[class*="ScTag"]'),
	};
})()`
